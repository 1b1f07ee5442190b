// Package storage provides the document, event and fan-out sinks for
// processed records.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// CollectionDocument is what gets indexed into each vector collection.
type CollectionDocument struct {
	RequestID       string         `json:"request_id"`
	Collection      string         `json:"collection"`
	Category        string         `json:"category"`
	Subcategory     string         `json:"subcategory"`
	Confidence      float64        `json:"confidence"`
	Secondary       []string       `json:"secondary_categories"`
	Table           string         `json:"table"`
	State           string         `json:"state"`
	Format          string         `json:"format"`
	Content         string         `json:"content,omitempty"`
	Payload         map[string]any `json:"payload,omitempty"`
	SnapshotVersion string         `json:"snapshot_version"`
	ProcessedAt     time.Time      `json:"processed_at"`
}

// ElasticsearchSink indexes one document per vector collection of a record's
// storage plan. Records without a bundle are skipped.
type ElasticsearchSink struct {
	client      *es.Client
	indexPrefix string
}

// NewElasticsearchSink creates a sink writing to indices named prefix+collection.
func NewElasticsearchSink(client *es.Client, indexPrefix string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, indexPrefix: indexPrefix}
}

// Name identifies the sink in logs and metrics.
func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

// Persist bulk-indexes the record. Documents use the request id, so a retry
// overwrites rather than duplicates.
func (s *ElasticsearchSink) Persist(ctx context.Context, record *domain.Record) error {
	if record.Bundle == nil || len(record.Bundle.Storage.VectorCollections) == 0 {
		return nil
	}

	body, err := s.bulkBody(record)
	if err != nil {
		return err
	}

	res, err := s.client.Bulk(
		bytes.NewReader(body),
		s.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error bulk indexing: %s", res.String())
	}

	var bulkResult struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Index  string `json:"_index"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err = json.NewDecoder(res.Body).Decode(&bulkResult); err != nil {
		return fmt.Errorf("error decoding bulk response: %w", err)
	}
	if bulkResult.Errors {
		for _, item := range bulkResult.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("failed to index into %s: %s: %s", op.Index, op.Error.Type, op.Error.Reason)
				}
			}
		}
		return fmt.Errorf("bulk index reported errors for %s", record.RequestID)
	}
	return nil
}

func (s *ElasticsearchSink) bulkBody(record *domain.Record) ([]byte, error) {
	bundle := record.Bundle
	secondary := make([]string, 0, len(bundle.Secondary))
	for _, a := range bundle.Secondary {
		secondary = append(secondary, a.Category)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, collection := range bundle.Storage.VectorCollections {
		action := map[string]any{
			"index": map[string]any{"_index": s.indexPrefix + collection, "_id": record.RequestID},
		}
		doc := CollectionDocument{
			RequestID:       record.RequestID,
			Collection:      collection,
			Category:        bundle.Primary.Category,
			Subcategory:     bundle.Primary.Subcategory,
			Confidence:      bundle.Primary.Confidence,
			Secondary:       secondary,
			Table:           bundle.Storage.PrimaryTable,
			State:           string(record.State),
			Format:          string(record.Format),
			Content:         record.Text,
			Payload:         record.Payload,
			SnapshotVersion: record.SnapshotVersion,
			ProcessedAt:     record.ProcessedAt,
		}
		// Encode writes one JSON value per line, as the bulk API expects.
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("failed to marshal bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}
	}
	return buf.Bytes(), nil
}
