package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentbooks/property_management_app/internal/apperrors"
	"github.com/rentbooks/property_management_app/internal/core/domain"
	portsrepo "github.com/rentbooks/property_management_app/internal/core/ports/repositories"
)

type matchingRuleRepository struct {
	pool *pgxpool.Pool
}

// NewMatchingRuleRepository creates a new repository for matching rules.
// Conditions are stored as a jsonb document; the engine never queries inside
// them.
func NewMatchingRuleRepository(pool *pgxpool.Pool) portsrepo.MatchingRuleRepository {
	return &matchingRuleRepository{pool: pool}
}

var _ portsrepo.MatchingRuleRepository = (*matchingRuleRepository)(nil)

const matchingRuleColumns = `rule_id, bank_account_id, name, priority, enabled, conditions, property_id, transaction_type, category, created_at, created_by, last_updated_at, last_updated_by`

func (r *matchingRuleRepository) SaveRule(ctx context.Context, rule domain.MatchingRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions for rule %s: %w", rule.RuleID, err)
	}

	query := `
		INSERT INTO matching_rules (` + matchingRuleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err = r.pool.Exec(ctx, query,
		rule.RuleID,
		rule.BankAccountID,
		rule.Name,
		rule.Priority,
		rule.Enabled,
		conditions,
		rule.PropertyID,
		rule.Type,
		rule.Category,
		rule.CreatedAt,
		rule.CreatedBy,
		rule.LastUpdatedAt,
		rule.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.RuleID, err)
	}
	return nil
}

func (r *matchingRuleRepository) FindRuleByID(ctx context.Context, ruleID string) (*domain.MatchingRule, error) {
	query := `SELECT ` + matchingRuleColumns + ` FROM matching_rules WHERE rule_id = $1;`
	rule, err := scanMatchingRule(r.pool.QueryRow(ctx, query, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rule %s: %w", ruleID, err)
	}
	return rule, nil
}

func (r *matchingRuleRepository) UpdateRule(ctx context.Context, rule domain.MatchingRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions for rule %s: %w", rule.RuleID, err)
	}

	query := `
		UPDATE matching_rules
		SET name = $2, priority = $3, enabled = $4, conditions = $5, property_id = $6, transaction_type = $7, category = $8, last_updated_at = $9, last_updated_by = $10
		WHERE rule_id = $1;
	`
	tag, err := r.pool.Exec(ctx, query,
		rule.RuleID,
		rule.Name,
		rule.Priority,
		rule.Enabled,
		conditions,
		rule.PropertyID,
		rule.Type,
		rule.Category,
		rule.LastUpdatedAt,
		rule.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.RuleID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *matchingRuleRepository) DeleteRule(ctx context.Context, ruleID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM matching_rules WHERE rule_id = $1;`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListRulesForAccount returns the evaluation order: account rules first, then
// global rules, ascending priority within each group.
func (r *matchingRuleRepository) ListRulesForAccount(ctx context.Context, bankAccountID string) ([]domain.MatchingRule, error) {
	query := `
		SELECT ` + matchingRuleColumns + `
		FROM matching_rules
		WHERE bank_account_id = $1 OR bank_account_id IS NULL
		ORDER BY (bank_account_id IS NULL), priority, created_at;
	`
	rows, err := r.pool.Query(ctx, query, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules for account %s: %w", bankAccountID, err)
	}
	defer rows.Close()

	rules := []domain.MatchingRule{}
	for rows.Next() {
		rule, err := scanMatchingRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// UpdatePriorities rewrites priorities to 0..n-1 following the given order,
// in one database transaction. Global rules are untouched.
func (r *matchingRuleRepository) UpdatePriorities(ctx context.Context, bankAccountID string, orderedRuleIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	query := `
		UPDATE matching_rules
		SET priority = $3, last_updated_at = $4
		WHERE rule_id = $1 AND bank_account_id = $2;
	`
	now := time.Now().UTC()
	for i, ruleID := range orderedRuleIDs {
		batch.Queue(query, ruleID, bankAccountID, i, now)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute priority batch for account %s: %w", bankAccountID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit priority update for account %s: %w", bankAccountID, err)
	}
	return nil
}

func scanMatchingRule(row pgx.Row) (*domain.MatchingRule, error) {
	var rule domain.MatchingRule
	var conditions []byte
	err := row.Scan(
		&rule.RuleID,
		&rule.BankAccountID,
		&rule.Name,
		&rule.Priority,
		&rule.Enabled,
		&conditions,
		&rule.PropertyID,
		&rule.Type,
		&rule.Category,
		&rule.CreatedAt,
		&rule.CreatedBy,
		&rule.LastUpdatedAt,
		&rule.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions for rule %s: %w", rule.RuleID, err)
	}
	return &rule, nil
}
