package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

// ErrRecordNotFound is returned when a request id is unknown.
var ErrRecordNotFound = errors.New("record not found")

const defaultListLimit = 50

// RecordRow is the stored summary of one categorization request.
type RecordRow struct {
	RequestID        string    `db:"request_id"        json:"request_id"`
	SubmitterID      string    `db:"submitter_id"      json:"submitter_id,omitempty"`
	Format           string    `db:"format"            json:"format"`
	State            string    `db:"state"             json:"state"`
	PrimaryCategory  string    `db:"primary_category"  json:"primary_category"`
	Subcategory      string    `db:"subcategory"       json:"subcategory"`
	Confidence       float64   `db:"confidence"        json:"confidence"`
	ManualReview     bool      `db:"manual_review"     json:"manual_review"`
	ValidationStatus string    `db:"validation_status" json:"validation_status"`
	SnapshotVersion  string    `db:"snapshot_version"  json:"snapshot_version"`
	ErrorMessage     string    `db:"error_message"     json:"error,omitempty"`
	Payload          string    `db:"payload"           json:"-"`
	Classification   string    `db:"classification"    json:"-"`
	Validation       string    `db:"validation"        json:"-"`
	Bundle           string    `db:"bundle"            json:"-"`
	ProcessedAt      time.Time `db:"processed_at"      json:"processed_at"`
}

// RecordRepository persists processed records and their assignments. It
// implements processor.Sink.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new record repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Name identifies the sink in logs and metrics.
func (r *RecordRepository) Name() string { return "postgres" }

// Persist writes the request row and one row per assignment in a single
// transaction. Re-persisting a request replaces its previous rows.
func (r *RecordRepository) Persist(ctx context.Context, record *domain.Record) error {
	row, err := toRow(record)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	upsert := r.db.Rebind(`
		INSERT INTO categorization_requests (
			request_id, submitter_id, format, state, primary_category, subcategory,
			confidence, manual_review, validation_status, snapshot_version, error_message,
			payload, classification, validation, bundle, processed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (request_id) DO UPDATE SET
			state = excluded.state,
			primary_category = excluded.primary_category,
			subcategory = excluded.subcategory,
			confidence = excluded.confidence,
			manual_review = excluded.manual_review,
			validation_status = excluded.validation_status,
			snapshot_version = excluded.snapshot_version,
			error_message = excluded.error_message,
			payload = excluded.payload,
			classification = excluded.classification,
			validation = excluded.validation,
			bundle = excluded.bundle,
			processed_at = excluded.processed_at
	`)
	if _, err = tx.ExecContext(ctx, upsert,
		row.RequestID, row.SubmitterID, row.Format, row.State, row.PrimaryCategory, row.Subcategory,
		row.Confidence, row.ManualReview, row.ValidationStatus, row.SnapshotVersion, row.ErrorMessage,
		row.Payload, row.Classification, row.Validation, row.Bundle, row.ProcessedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert request %s: %w", record.RequestID, err)
	}

	if _, err = tx.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM category_assignments WHERE request_id = ?`), record.RequestID,
	); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	if record.Bundle != nil {
		insert := r.db.Rebind(`
			INSERT INTO category_assignments (
				request_id, category, subcategory, confidence, assignment_type,
				relationship, validation_status, target_table
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		assignments := append([]domain.CategoryAssignment{record.Bundle.Primary}, record.Bundle.Secondary...)
		for i, a := range assignments {
			table := record.Bundle.Storage.PrimaryTable
			if i > 0 {
				table = record.Bundle.Storage.CrossLinks[i-1].Table
			}
			if _, err = tx.ExecContext(ctx, insert,
				record.RequestID, a.Category, a.Subcategory, a.Confidence, a.AssignmentType,
				a.Relationship, a.ValidationStatus, table,
			); err != nil {
				return fmt.Errorf("failed to insert assignment %s: %w", a.Category, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record %s: %w", record.RequestID, err)
	}
	return nil
}

// GetByID retrieves a stored request.
func (r *RecordRepository) GetByID(ctx context.Context, requestID string) (*RecordRow, error) {
	var row RecordRow
	query := r.db.Rebind(`SELECT * FROM categorization_requests WHERE request_id = ?`)
	if err := r.db.GetContext(ctx, &row, query, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &row, nil
}

// ListByState returns the most recent requests in state, newest first.
func (r *RecordRepository) ListByState(ctx context.Context, state domain.RequestState, limit int) ([]RecordRow, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows := make([]RecordRow, 0)
	query := r.db.Rebind(`
		SELECT * FROM categorization_requests
		WHERE state = ?
		ORDER BY processed_at DESC, request_id
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, string(state), limit); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return rows, nil
}

// Assignments returns the stored assignments of a request, primary first.
func (r *RecordRepository) Assignments(ctx context.Context, requestID string) ([]domain.CategoryAssignment, error) {
	var rows []struct {
		Category         string  `db:"category"`
		Subcategory      string  `db:"subcategory"`
		Confidence       float64 `db:"confidence"`
		AssignmentType   string  `db:"assignment_type"`
		Relationship     string  `db:"relationship"`
		ValidationStatus string  `db:"validation_status"`
	}
	query := r.db.Rebind(`
		SELECT category, subcategory, confidence, assignment_type, relationship, validation_status
		FROM category_assignments
		WHERE request_id = ?
		ORDER BY CASE assignment_type WHEN 'primary' THEN 0 ELSE 1 END, confidence DESC, category
	`)
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	out := make([]domain.CategoryAssignment, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.CategoryAssignment{
			Category:         row.Category,
			Subcategory:      row.Subcategory,
			Confidence:       row.Confidence,
			AssignmentType:   domain.AssignmentType(row.AssignmentType),
			Relationship:     row.Relationship,
			ValidationStatus: domain.ValidationStatus(row.ValidationStatus),
		})
	}
	return out, nil
}

func toRow(record *domain.Record) (*RecordRow, error) {
	row := &RecordRow{
		RequestID:       record.RequestID,
		SubmitterID:     record.SubmitterID,
		Format:          string(record.Format),
		State:           string(record.State),
		SnapshotVersion: record.SnapshotVersion,
		ErrorMessage:    record.Error,
		ProcessedAt:     record.ProcessedAt,
	}
	if record.Classification != nil {
		row.PrimaryCategory = record.Classification.Primary.Category
		row.Confidence = record.Classification.Primary.Confidence
		row.ManualReview = record.Classification.ManualReview
	}
	if record.Bundle != nil {
		row.Subcategory = record.Bundle.Primary.Subcategory
		row.Confidence = record.Bundle.Primary.Confidence
	}
	row.ValidationStatus = string(record.Validation.Status())

	var err error
	if record.Format == domain.FormatText {
		row.Payload = record.Text
	} else if row.Payload, err = marshal(record.Payload); err != nil {
		return nil, err
	}
	if row.Classification, err = marshal(record.Classification); err != nil {
		return nil, err
	}
	if row.Validation, err = marshal(record.Validation); err != nil {
		return nil, err
	}
	if row.Bundle, err = marshal(record.Bundle); err != nil {
		return nil, err
	}
	return row, nil
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(b), nil
}
