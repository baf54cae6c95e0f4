package rules

import (
	"encoding/json"
	"time"

	"readinglist/internal/domain"
)

// Kind tags the variant held by a Value
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
	KindSet
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "timestamp"
	case KindSet:
		return "set"
	case KindBool:
		return "bool"
	}
	return "null"
}

// Value is a field or comparison value. Only the member matching Kind is
// meaningful.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Time time.Time
	Set  []string
	Bool bool
}

func Null() Value { return Value{Kind: KindNull} }
func String(s string) Value { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }
func Set(s []string) Value { return Value{Kind: KindSet, Set: s} }
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func optionalString(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

func optionalInt(n *int) Value {
	if n == nil {
		return Null()
	}
	return Number(float64(*n))
}

func optionalTime(t *time.Time) Value {
	if t == nil {
		return Null()
	}
	return Timestamp(*t)
}

// fieldKinds declares the variant of every item field a rule may target
var fieldKinds = map[string]Kind{
	"id":              KindString,
	"url":             KindString,
	"title":           KindString,
	"description":     KindString,
	"domain":          KindString,
	"favicon":         KindString,
	"tags":            KindSet,
	"priority":        KindString,
	"status":          KindString,
	"estMinutes":      KindNumber,
	"wordCount":       KindNumber,
	"notes":           KindString,
	"createdAt":       KindTime,
	"updatedAt":       KindTime,
	"lastOpenedAt":    KindTime,
	"metadataFetched": KindBool,
}

// FieldKind returns the declared variant of field and whether it is known
func FieldKind(field string) (Kind, bool) {
	k, ok := fieldKinds[field]
	return k, ok
}

// FieldValue reads field from item. Absent optional fields and unknown
// field names yield a null value.
func FieldValue(item domain.Item, field string) Value {
	switch field {
	case "id":
		return String(item.ID)
	case "url":
		return String(item.URL)
	case "title":
		return String(item.Title)
	case "description":
		return optionalString(item.Description)
	case "domain":
		return String(item.Domain)
	case "favicon":
		return optionalString(item.Favicon)
	case "tags":
		return Set(item.Tags)
	case "priority":
		return String(string(item.Priority))
	case "status":
		return String(string(item.Status))
	case "estMinutes":
		return optionalInt(item.EstMinutes)
	case "wordCount":
		return optionalInt(item.WordCount)
	case "notes":
		return optionalString(item.Notes)
	case "createdAt":
		return Timestamp(item.CreatedAt)
	case "updatedAt":
		return Timestamp(item.UpdatedAt)
	case "lastOpenedAt":
		return optionalTime(item.LastOpenedAt)
	case "metadataFetched":
		return Bool(item.MetadataFetched)
	}
	return Null()
}

// Coerce converts a raw rule value (as decoded from JSON or built in code)
// into the variant kind. The conversion only happens when it is lossless;
// ok is false otherwise and the rule must not match.
func Coerce(raw any, kind Kind) (Value, bool) {
	switch kind {
	case KindString:
		switch v := raw.(type) {
		case string:
			return String(v), true
		case domain.Priority:
			return String(string(v)), true
		case domain.Status:
			return String(string(v)), true
		}
	case KindNumber:
		switch v := raw.(type) {
		case float64:
			return Number(v), true
		case float32:
			return Number(float64(v)), true
		case int:
			return Number(float64(v)), true
		case int64:
			return Number(float64(v)), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return Number(f), true
			}
		}
	case KindTime:
		switch v := raw.(type) {
		case time.Time:
			return Timestamp(v), true
		case *time.Time:
			if v != nil {
				return Timestamp(*v), true
			}
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return Timestamp(t), true
			}
		}
	case KindSet:
		switch v := raw.(type) {
		case []string:
			return Set(v), true
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return Null(), false
				}
				out = append(out, s)
			}
			return Set(out), true
		}
	case KindBool:
		if b, ok := raw.(bool); ok {
			return Bool(b), true
		}
	}
	return Null(), false
}
