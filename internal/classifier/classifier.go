// Package classifier maps raw detector labels onto the fixed waste categories.
//
// Classification is a first-match walk over an ordered rule table: raw class
// keywords first, then item text keywords, then the general fallback. Matching
// is case-insensitive substring matching on trimmed input. Every input
// classifies to exactly one category.
package classifier

import (
	"strings"

	"github.com/rewired-gh/smartbin/internal/models"
)

// Field selects which input a rule inspects.
type Field int

const (
	FieldRawClass Field = iota
	FieldItem
	// FieldNone marks the fallback rule, which matches everything.
	FieldNone
)

func (f Field) String() string {
	switch f {
	case FieldRawClass:
		return "class"
	case FieldItem:
		return "item"
	default:
		return "default"
	}
}

// Rule assigns Category when Field contains any of Keywords.
type Rule struct {
	Field    Field
	Keywords []string
	Category models.Category
}

func (r Rule) matches(rawClass, item string) bool {
	var s string
	switch r.Field {
	case FieldRawClass:
		s = rawClass
	case FieldItem:
		s = item
	default:
		return true
	}
	if s == "" {
		return false
	}
	for _, kw := range r.Keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

var fallback = Rule{Field: FieldNone, Category: models.CategoryGeneral}

var rules = []Rule{
	{Field: FieldRawClass, Keywords: []string{"recycl"}, Category: models.CategoryRecyclable},
	{Field: FieldRawClass, Keywords: []string{"compost", "organic"}, Category: models.CategoryOrganic},
	{Field: FieldRawClass, Keywords: []string{"trash", "landfill"}, Category: models.CategoryGeneral},
	{Field: FieldItem, Keywords: []string{"bottle", "can", "paper", "cardboard", "glass", "aluminum"}, Category: models.CategoryRecyclable},
	{Field: FieldItem, Keywords: []string{"banana", "apple", "fruit", "vegetable", "food", "compost"}, Category: models.CategoryOrganic},
	fallback,
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the category for a raw class label and item text.
func Classify(rawClass, item string) models.Category {
	c, _ := Explain(rawClass, item)
	return c
}

// Explain is Classify plus the rule that decided it.
func Explain(rawClass, item string) (models.Category, Rule) {
	rawClass = normalize(rawClass)
	item = normalize(item)
	for _, r := range rules {
		if r.matches(rawClass, item) {
			return r.Category, r
		}
	}
	return fallback.Category, fallback
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
