package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/north-cloud/categorizer/internal/catalog"
	"github.com/jonesrussell/north-cloud/categorizer/internal/domain"
)

type ruleRow struct {
	RuleID    string    `db:"rule_id"`
	Category  string    `db:"category"`
	Kind      string    `db:"kind"`
	Field     string    `db:"field"`
	FieldType string    `db:"field_type"`
	RuleName  string    `db:"rule_name"`
	Params    string    `db:"params"`
	Priority  int       `db:"priority"`
	Enabled   bool      `db:"enabled"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row ruleRow) toDomain() (domain.ValidationRule, error) {
	var params map[string]string
	if row.Params != "" {
		if err := json.Unmarshal([]byte(row.Params), &params); err != nil {
			return domain.ValidationRule{}, fmt.Errorf("failed to decode params of rule %s: %w", row.RuleID, err)
		}
	}
	if len(params) == 0 {
		params = nil
	}
	return domain.ValidationRule{
		ID:       row.RuleID,
		Category: row.Category,
		Kind:     domain.RuleKind(row.Kind),
		Definition: domain.RuleDefinition{
			Field:  row.Field,
			Type:   domain.FieldType(row.FieldType),
			Rule:   row.RuleName,
			Params: params,
		},
		Priority: row.Priority,
	}, nil
}

// RulesRepository handles database operations for validation rules.
type RulesRepository struct {
	db *sqlx.DB
}

// NewRulesRepository creates a new rules repository.
func NewRulesRepository(db *sqlx.DB) *RulesRepository {
	return &RulesRepository{db: db}
}

// Upsert inserts or replaces a rule.
func (r *RulesRepository) Upsert(ctx context.Context, rule domain.ValidationRule, enabled bool) error {
	params, err := json.Marshal(rule.Definition.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	if rule.Definition.Params == nil {
		params = []byte("{}")
	}

	query := r.db.Rebind(`
		INSERT INTO validation_rules (
			rule_id, category, kind, field, field_type, rule_name, params, priority, enabled, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (rule_id) DO UPDATE SET
			category = excluded.category,
			kind = excluded.kind,
			field = excluded.field,
			field_type = excluded.field_type,
			rule_name = excluded.rule_name,
			params = excluded.params,
			priority = excluded.priority,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`)
	if _, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Category, string(rule.Kind), rule.Definition.Field, string(rule.Definition.Type),
		rule.Definition.Rule, string(params), rule.Priority, enabled, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// Delete removes a rule. Deleting an unknown rule is not an error.
func (r *RulesRepository) Delete(ctx context.Context, ruleID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM validation_rules WHERE rule_id = ?`), ruleID); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	return nil
}

// ListEnabled returns enabled rules grouped by category, highest priority first.
func (r *RulesRepository) ListEnabled(ctx context.Context) (map[string][]domain.ValidationRule, error) {
	var rows []ruleRow
	query := r.db.Rebind(`
		SELECT rule_id, category, kind, field, field_type, rule_name, params, priority, enabled, updated_at
		FROM validation_rules
		WHERE enabled = ?
		ORDER BY category, priority DESC, rule_id
	`)
	if err := r.db.SelectContext(ctx, &rows, query, true); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	out := make(map[string][]domain.ValidationRule)
	for _, row := range rows {
		rule, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[rule.Category] = append(out[rule.Category], rule)
	}
	return out, nil
}

// Overlay returns a loader that reads base and then replaces the rule set of
// every category that has enabled rules in the database.
func (r *RulesRepository) Overlay(base catalog.Loader) catalog.Loader {
	return func(ctx context.Context) (*catalog.Configuration, error) {
		cfg, err := base(ctx)
		if err != nil {
			return nil, err
		}
		sets, err := r.ListEnabled(ctx)
		if err != nil {
			return nil, err
		}
		if len(sets) == 0 {
			return cfg, nil
		}

		cfg = cfg.Clone()
		if cfg.RuleSets == nil {
			cfg.RuleSets = make(map[string][]domain.ValidationRule, len(sets))
		}
		for category, rules := range sets {
			cfg.RuleSets[category] = rules
		}
		return cfg, nil
	}
}
