package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// Publisher is the subset of *redis.Client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RecordEvent is published for every processed record.
type RecordEvent struct {
	RequestID       string    `json:"request_id"`
	State           string    `json:"state"`
	Category        string    `json:"category,omitempty"`
	Subcategory     string    `json:"subcategory,omitempty"`
	Confidence      float64   `json:"confidence"`
	Secondary       []string  `json:"secondary_categories,omitempty"`
	ManualReview    bool      `json:"manual_review"`
	Table           string    `json:"table,omitempty"`
	Collections     []string  `json:"collections,omitempty"`
	Error           string    `json:"error,omitempty"`
	SnapshotVersion string    `json:"snapshot_version"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// RedisSink announces processed records on a pub/sub channel so downstream
// consumers (review queues, indexers) can react.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink creates a sink publishing to channel.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// Name identifies the sink in logs and metrics.
func (s *RedisSink) Name() string { return "redis" }

// Persist publishes the record event.
func (s *RedisSink) Persist(ctx context.Context, record *domain.Record) error {
	payload, err := json.Marshal(NewRecordEvent(record))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err = s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.channel, err)
	}
	return nil
}

// NewRecordEvent summarises record for subscribers.
func NewRecordEvent(record *domain.Record) RecordEvent {
	ev := RecordEvent{
		RequestID:       record.RequestID,
		State:           string(record.State),
		Error:           record.Error,
		SnapshotVersion: record.SnapshotVersion,
		ProcessedAt:     record.ProcessedAt,
	}
	if record.Classification != nil {
		ev.ManualReview = record.Classification.ManualReview
	}
	if b := record.Bundle; b != nil {
		ev.Category = b.Primary.Category
		ev.Subcategory = b.Primary.Subcategory
		ev.Confidence = b.Primary.Confidence
		ev.Table = b.Storage.PrimaryTable
		ev.Collections = b.Storage.VectorCollections
		for _, a := range b.Secondary {
			ev.Secondary = append(ev.Secondary, a.Category)
		}
	}
	return ev
}
