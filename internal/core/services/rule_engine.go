package services

import (
	"sort"
	"strings"

	"github.com/rentbooks/property_management_app/internal/core/domain"
)

// RuleMatch is the accumulator of one evaluation pass: the best categorization
// derived so far plus every rule whose conditions passed. A slot filled by an
// earlier rule is never overwritten by a later one.
type RuleMatch struct {
	PropertyID   *string
	Type         *domain.TransactionType
	Category     *string
	MatchedRules []string
}

// IsFullyMatched reports whether all three assignment slots are set.
func (m RuleMatch) IsFullyMatched() bool {
	return m.PropertyID != nil && m.Type != nil && m.Category != nil
}

// EvaluateRules scores a transaction against rules in the given order and
// folds their assignments into a RuleMatch. Disabled rules are skipped. A
// matching rule contributes its outputs only to slots that are still unset;
// its id is recorded either way. Evaluation stops early once every slot is
// filled. The function is pure: no I/O, no side effects, deterministic.
//
// Callers are responsible for ordering: account-specific rules before global
// rules, ascending priority within each group (see OrderRules).
func EvaluateRules(txn domain.BankTransaction, rules []domain.MatchingRule) RuleMatch {
	match := RuleMatch{}

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !conditionsPass(txn, rule.Conditions) {
			continue
		}

		match.MatchedRules = append(match.MatchedRules, rule.RuleID)

		if match.PropertyID == nil && rule.PropertyID != nil {
			match.PropertyID = rule.PropertyID
		}
		if match.Type == nil && rule.Type != nil {
			match.Type = rule.Type
		}
		if match.Category == nil && rule.Category != nil {
			match.Category = rule.Category
		}

		if match.IsFullyMatched() {
			break
		}
	}

	return match
}

// OrderRules sorts rules into evaluation order: account-specific rules before
// global rules, ascending priority within each group. The sort is stable so
// equal priorities keep their stored order.
func OrderRules(rules []domain.MatchingRule) []domain.MatchingRule {
	ordered := make([]domain.MatchingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].IsGlobal() != ordered[j].IsGlobal() {
			return !ordered[i].IsGlobal()
		}
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

func conditionsPass(txn domain.BankTransaction, conditions domain.RuleConditions) bool {
	if len(conditions.Conditions) == 0 {
		return false
	}

	for _, c := range conditions.Conditions {
		passed := conditionPasses(txn, c)
		if conditions.Operator == domain.OperatorOr && passed {
			return true
		}
		if conditions.Operator != domain.OperatorOr && !passed {
			return false
		}
	}
	// AND: every condition passed; OR: none did.
	return conditions.Operator != domain.OperatorOr
}

func conditionPasses(txn domain.BankTransaction, c domain.RuleCondition) bool {
	if c.Field == domain.FieldAmount {
		return amountConditionPasses(txn, c)
	}
	return textConditionPasses(textFieldValue(txn, c.Field), c)
}

func textFieldValue(txn domain.BankTransaction, field domain.ConditionField) string {
	switch field {
	case domain.FieldDescription:
		return txn.Description
	case domain.FieldCounterpartyName:
		return txn.CounterpartyName
	case domain.FieldReference:
		return txn.Reference
	case domain.FieldMerchant:
		return txn.Merchant
	default:
		return ""
	}
}

func textConditionPasses(value string, c domain.RuleCondition) bool {
	target := c.Value
	if !c.CaseSensitive {
		value = strings.ToLower(value)
		target = strings.ToLower(target)
	}

	switch c.MatchType {
	case domain.MatchContains:
		return strings.Contains(value, target)
	case domain.MatchEquals:
		return value == target
	case domain.MatchStartsWith:
		return strings.HasPrefix(value, target)
	case domain.MatchEndsWith:
		return strings.HasSuffix(value, target)
	default:
		return false
	}
}

// amountConditionPasses compares against the transaction's signed amount, not
// its absolute value: greaterThan 500 does not match -750.
func amountConditionPasses(txn domain.BankTransaction, c domain.RuleCondition) bool {
	target, err := c.NumericValue()
	if err != nil {
		// Unparseable condition values never match; rule validation should
		// have rejected them upstream.
		return false
	}

	switch c.MatchType {
	case domain.MatchEquals:
		return txn.Amount.Equal(target)
	case domain.MatchGreaterThan:
		return txn.Amount.GreaterThan(target)
	case domain.MatchLessThan:
		return txn.Amount.LessThan(target)
	default:
		return false
	}
}
