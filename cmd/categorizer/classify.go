package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/categorizer/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
	"github.com/jonesrussell/north-cloud/categorizer/internal/processor"
	"github.com/jonesrussell/north-cloud/categorizer/internal/telemetry"
)

type classifyOptions struct {
	file string
	text string
	id   string
}

func newClassifyCommand(opts *rootOptions) *cobra.Command {
	co := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Categorize records offline and print the results as JSON",
		Long: `Runs records through the categorization pipeline without storing them.

Example:
  # Categorize one record
  echo '{"payload": {"item_id": "SKU123", "quantity": 100}}' | categorizer classify

  # Categorize a batch file holding a JSON array of requests
  categorizer classify --file requests.json

  # Categorize free text
  categorizer classify --text "received pallet against PO-12345"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, opts, co)
		},
	}

	cmd.Flags().StringVarP(&co.file, "file", "f", "-", "JSON request file, - for stdin")
	cmd.Flags().StringVarP(&co.text, "text", "t", "", "free text to categorize instead of a request file")
	cmd.Flags().StringVar(&co.id, "id", "", "request id for --text")

	return cmd
}

func runClassify(cmd *cobra.Command, opts *rootOptions, co *classifyOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger := infralogger.NewNop()
	if opts.debug {
		logger, err = infralogger.New(infralogger.Config{
			Level:       "debug",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
	}

	reqs, err := readRequests(cmd.InOrStdin(), co)
	if err != nil {
		return err
	}

	engine, err := bootstrap.NewEngine(cmd.Context(), cfg, catalog.FileLoader(cfg.Catalog.Path),
		telemetry.NewIsolatedProvider(), nil, logger)
	if err != nil {
		return err
	}

	items := engine.Batch.Process(cmd.Context(), reqs)
	records := make([]*domain.Record, 0, len(items))
	var errs []error
	for _, item := range items {
		if item.Err != nil {
			errs = append(errs, item.Err)
		}
		if item.Record != nil {
			records = append(records, item.Record)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	var out any = records
	if len(records) == 1 {
		out = records[0]
	}
	if err = enc.Encode(out); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return errors.Join(errs...)
}

// readRequests returns the --text request, or the requests in the input file.
// A file holds either one request object or an array of them.
func readRequests(stdin io.Reader, co *classifyOptions) ([]processor.Request, error) {
	if co.text != "" {
		return []processor.Request{{ID: co.id, Format: domain.FormatText, Text: co.text}}, nil
	}

	var (
		data []byte
		err  error
	)
	if co.file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(co.file)
	}
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no requests given")
	}
	if data[0] == '[' {
		var reqs []processor.Request
		if err = json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("parse requests: %w", err)
		}
		return reqs, nil
	}
	var req processor.Request
	if err = json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return []processor.Request{req}, nil
}
