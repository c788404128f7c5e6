package dto

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// ruleValidator validates the nested condition payloads that gin's binding
// tags cannot reach.
var ruleValidator = validator.New()

// RuleConditionSpec mirrors domain.RuleCondition for requests.
type RuleConditionSpec struct {
	Field         string `json:"field" validate:"required,oneof=description counterpartyName reference merchant amount"`
	MatchType     string `json:"matchType" validate:"required,oneof=contains equals startsWith endsWith greaterThan lessThan"`
	Value         string `json:"value" validate:"required"`
	CaseSensitive bool   `json:"caseSensitive"`
}

// RuleConditionsSpec mirrors domain.RuleConditions for requests.
type RuleConditionsSpec struct {
	Operator   string              `json:"operator" validate:"required,oneof=AND OR"`
	Conditions []RuleConditionSpec `json:"conditions" validate:"required,min=1,dive"`
}

// SaveRuleRequest creates or replaces a matching rule.
type SaveRuleRequest struct {
	Name       string             `json:"name" binding:"required,max=120"`
	Priority   int                `json:"priority" binding:"min=0"`
	Enabled    bool               `json:"enabled"`
	Conditions RuleConditionsSpec `json:"conditions" binding:"required"`
	PropertyID *string            `json:"propertyId"`
	Type       *string            `json:"type"`
	Category   *string            `json:"category"`
}

// Validate checks the nested conditions and the type/category output pair.
func (r SaveRuleRequest) Validate() error {
	if err := ruleValidator.Struct(r.Conditions); err != nil {
		return err
	}
	for _, c := range r.Conditions.Conditions {
		numeric := c.MatchType == string(domain.MatchGreaterThan) || c.MatchType == string(domain.MatchLessThan)
		if c.Field == string(domain.FieldAmount) {
			if c.MatchType != string(domain.MatchEquals) && !numeric {
				return fmt.Errorf("match type %q is not valid for the amount field", c.MatchType)
			}
			if _, err := decimal.NewFromString(c.Value); err != nil {
				return fmt.Errorf("amount condition value %q is not a number", c.Value)
			}
		} else if numeric {
			return fmt.Errorf("match type %q is only valid for the amount field", c.MatchType)
		}
	}
	if r.Type != nil {
		typ := domain.TransactionType(*r.Type)
		if typ != domain.Income && typ != domain.Expense {
			return fmt.Errorf("unknown transaction type %q", *r.Type)
		}
		if r.Category != nil && !domain.IsValidCategory(typ, *r.Category) {
			return fmt.Errorf("category %q is not valid for type %q", *r.Category, *r.Type)
		}
	} else if r.Category != nil {
		return fmt.Errorf("category requires a type")
	}
	return nil
}

// ToDomainConditions converts the request conditions to the domain shape.
func (r SaveRuleRequest) ToDomainConditions() domain.RuleConditions {
	conditions := make([]domain.RuleCondition, 0, len(r.Conditions.Conditions))
	for _, c := range r.Conditions.Conditions {
		conditions = append(conditions, domain.RuleCondition{
			Field:         domain.ConditionField(c.Field),
			MatchType:     domain.MatchType(c.MatchType),
			Value:         c.Value,
			CaseSensitive: c.CaseSensitive,
		})
	}
	return domain.RuleConditions{
		Operator:   domain.ConditionOperator(r.Conditions.Operator),
		Conditions: conditions,
	}
}

// TransactionTypeOrNil converts the optional type string.
func (r SaveRuleRequest) TransactionTypeOrNil() *domain.TransactionType {
	if r.Type == nil {
		return nil
	}
	typ := domain.TransactionType(*r.Type)
	return &typ
}

// ReorderRulesRequest reassigns account-rule priorities to match the order of
// the listed ids.
type ReorderRulesRequest struct {
	OrderedRuleIDs []string `json:"orderedRuleIds" binding:"required,min=1"`
}

// RuleMutationResponse wraps a rule mutation outcome with the reprocessing
// counts it triggered.
type RuleMutationResponse struct {
	Rule      *domain.MatchingRule   `json:"rule,omitempty"`
	Reprocess domain.ReprocessResult `json:"reprocess"`
}

// TestTransaction is the sample transaction for the rule test endpoint.
type TestTransaction struct {
	Description      string `json:"description"`
	CounterpartyName string `json:"counterpartyName"`
	Reference        string `json:"reference"`
	Merchant         string `json:"merchant"`
	Amount           string `json:"amount" binding:"required"`
}

// TestRulesRequest evaluates candidate rules against a sample transaction
// without persisting anything.
type TestRulesRequest struct {
	Transaction TestTransaction   `json:"transaction" binding:"required"`
	Rules       []SaveRuleRequest `json:"rules" binding:"required,min=1"`
}

// TestRulesResponse reports what the rule engine derived.
type TestRulesResponse struct {
	PropertyID     *string                 `json:"propertyId"`
	Type           *domain.TransactionType `json:"type"`
	Category       *string                 `json:"category"`
	MatchedRules   []string                `json:"matchedRules"`
	IsFullyMatched bool                    `json:"isFullyMatched"`
}
