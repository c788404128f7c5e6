package domain

import "github.com/shopspring/decimal"

// ConditionField names a transaction attribute a rule condition tests.
type ConditionField string

const (
	FieldDescription      ConditionField = "description"
	FieldCounterpartyName ConditionField = "counterpartyName"
	FieldReference        ConditionField = "reference"
	FieldMerchant         ConditionField = "merchant"
	FieldAmount           ConditionField = "amount"
)

// MatchType is the comparison a condition performs. Text match types apply to
// text fields, numeric match types to the amount field.
type MatchType string

const (
	MatchContains    MatchType = "contains"
	MatchEquals      MatchType = "equals"
	MatchStartsWith  MatchType = "startsWith"
	MatchEndsWith    MatchType = "endsWith"
	MatchGreaterThan MatchType = "greaterThan"
	MatchLessThan    MatchType = "lessThan"
)

// ConditionOperator combines the condition list of a rule.
type ConditionOperator string

const (
	OperatorAnd ConditionOperator = "AND"
	OperatorOr  ConditionOperator = "OR"
)

// RuleCondition is a single field test. CaseSensitive only affects text
// fields; numeric comparisons operate on the transaction's signed amount.
type RuleCondition struct {
	Field         ConditionField `json:"field"`
	MatchType     MatchType      `json:"matchType"`
	Value         string         `json:"value"`
	CaseSensitive bool           `json:"caseSensitive"`
}

// RuleConditions is the boolean expression of a rule: the listed conditions
// combined with Operator (AND: all must pass, OR: any must pass).
type RuleConditions struct {
	Operator   ConditionOperator `json:"operator"`
	Conditions []RuleCondition   `json:"conditions"`
}

// MatchingRule maps transactions to a candidate categorization. A nil
// BankAccountID makes the rule global: it applies to every account and cannot
// be edited, deleted or reordered through account-scoped operations. Lower
// priority values are evaluated first.
type MatchingRule struct {
	RuleID        string           `json:"ruleID"`
	BankAccountID *string          `json:"bankAccountID"` // nil => global
	Name          string           `json:"name"`
	Priority      int              `json:"priority"`
	Enabled       bool             `json:"enabled"`
	Conditions    RuleConditions   `json:"conditions"`
	PropertyID    *string          `json:"propertyID"`
	Type          *TransactionType `json:"type"`
	Category      *string          `json:"category"`
	AuditFields
}

// IsGlobal reports whether the rule applies to all accounts.
func (r MatchingRule) IsGlobal() bool {
	return r.BankAccountID == nil
}

// NumericValue parses the condition value as a decimal for amount conditions.
func (c RuleCondition) NumericValue() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Value)
}
