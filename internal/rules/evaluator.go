// Package rules evaluates collection rules against items.
//
// Rules are always combined with AND. A rule whose field, operator or value
// does not type-check never matches, so an unrecognized rule can only shrink
// a collection, never grow it.
package rules

import (
	"fmt"
	"strings"

	"readinglist/internal/domain"
)

// Matches reports whether item belongs to a collection defined by rules.
// An empty rule list matches every item. The per-rule LogicalOperator hint
// is ignored.
func Matches(item domain.Item, rules []domain.CollectionRule) bool {
	for _, rule := range rules {
		if !MatchRule(item, rule) {
			return false
		}
	}
	return true
}

// MatchRule evaluates a single rule against item
func MatchRule(item domain.Item, rule domain.CollectionRule) bool {
	kind, ok := FieldKind(rule.Field)
	if !ok {
		return false
	}
	field := FieldValue(item, rule.Field)
	if field.Kind == KindNull {
		return false
	}

	switch rule.Operator {
	case domain.OpEquals:
		want, ok := Coerce(rule.Value, kind)
		return ok && equal(field, want)

	case domain.OpContains:
		if field.Kind == KindSet {
			member, ok := Coerce(rule.Value, KindString)
			return ok && containsMember(field.Set, member.Str)
		}
		return compareText(field, rule.Value, strings.Contains)

	case domain.OpStartsWith:
		return compareText(field, rule.Value, strings.HasPrefix)

	case domain.OpEndsWith:
		return compareText(field, rule.Value, strings.HasSuffix)

	case domain.OpGreaterThan:
		return compareOrdered(field, rule.Value, kind) > 0

	case domain.OpLessThan:
		cmp := compareOrdered(field, rule.Value, kind)
		return cmp < 0 && cmp != incomparable

	default:
		// in and between are declared but not evaluated
		return false
	}
}

func equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindNumber:
		return a.Num == b.Num
	case KindTime:
		return a.Time.Equal(b.Time)
	case KindBool:
		return a.Bool == b.Bool
	}
	// sets have no value equality
	return false
}

func containsMember(set []string, member string) bool {
	for _, s := range set {
		if s == member {
			return true
		}
	}
	return false
}

// compareText applies a case-insensitive string predicate; only string
// fields compared with string values type-check
func compareText(field Value, raw any, pred func(s, sub string) bool) bool {
	if field.Kind != KindString {
		return false
	}
	want, ok := Coerce(raw, KindString)
	if !ok {
		return false
	}
	return pred(strings.ToLower(field.Str), strings.ToLower(want.Str))
}

// incomparable is returned by compareOrdered when the values cannot be
// ordered; it is below every real comparison result
const incomparable = -2

// compareOrdered orders field against the rule value numerically or
// chronologically, depending on the field's variant
func compareOrdered(field Value, raw any, kind Kind) int {
	if kind != KindNumber && kind != KindTime {
		return incomparable
	}
	want, ok := Coerce(raw, kind)
	if !ok {
		return incomparable
	}
	switch kind {
	case KindNumber:
		switch {
		case field.Num > want.Num:
			return 1
		case field.Num < want.Num:
			return -1
		}
		return 0
	default:
		return field.Time.Compare(want.Time)
	}
}

// Filter returns the items matching rules, preserving order
func Filter(items []domain.Item, rules []domain.CollectionRule) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if Matches(item, rules) {
			out = append(out, item)
		}
	}
	return out
}

// Validate reports the first rule whose field or operator is unknown.
// Unknown rules are storable (they simply never match); callers use this to
// reject them at input boundaries.
func Validate(rules []domain.CollectionRule) error {
	for i, rule := range rules {
		if _, ok := FieldKind(rule.Field); !ok {
			return domain.ValidationError{Field: "rules", Message: fmt.Sprintf("rule %d: unknown field %q", i, rule.Field)}
		}
		switch rule.Operator {
		case domain.OpEquals, domain.OpContains, domain.OpStartsWith, domain.OpEndsWith,
			domain.OpGreaterThan, domain.OpLessThan, domain.OpIn, domain.OpBetween:
		default:
			return domain.ValidationError{Field: "rules", Message: fmt.Sprintf("rule %d: unknown operator %q", i, rule.Operator)}
		}
	}
	return nil
}
