package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/validation"
)

func newCheckConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config [categories.yml]",
		Short: "Validate a category configuration file without starting the service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.catalogPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.Catalog.Path
			}
			return checkConfig(cmd, path)
		},
	}
}

func checkConfig(cmd *cobra.Command, path string) error {
	cfg, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	snap, err := catalog.Compile(cfg, validation.NewRegistry())
	if err != nil {
		return fmt.Errorf("%s is invalid:\n%w", path, err)
	}

	rules := 0
	for _, set := range snap.RuleSets {
		rules += len(set)
	}
	withoutRules := make([]string, 0)
	for _, category := range snap.Categories {
		if _, ok := snap.RuleSet(category); !ok {
			withoutRules = append(withoutRules, category)
		}
	}
	sort.Strings(withoutRules)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s is valid\n", path)
	fmt.Fprintf(out, "  version:          %s\n", snap.Version)
	fmt.Fprintf(out, "  categories:       %d\n", len(snap.Categories))
	fmt.Fprintf(out, "  keywords:         %d\n", snap.Keywords.Size())
	fmt.Fprintf(out, "  patterns:         %d\n", len(snap.Patterns))
	fmt.Fprintf(out, "  validation rules: %d\n", rules)
	fmt.Fprintf(out, "  detectors:        %d\n", len(snap.Detectors))
	for _, category := range withoutRules {
		fmt.Fprintf(out, "  warning: category %q has no rule set, its records are never validated\n", category)
	}
	return nil
}
