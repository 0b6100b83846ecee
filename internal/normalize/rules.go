// Package normalize turns free-form complaint values into the canonical
// status, category, severity and timestamp vocabulary.
//
// Keyword policies are ordered rule lists: the first rule with a matching
// substring wins, so list order is the precedence.
package normalize

import (
	"fmt"
	"strings"

	"github.com/banza/complaint-desk/internal/domain"
)

// StatusRule maps any of Contains (lower-case substrings) to Status.
type StatusRule struct {
	Status   domain.TicketStatus
	Contains []string
}

// CategoryRule maps any of Contains (lower-case substrings) to Category.
type CategoryRule struct {
	Category domain.TicketCategory
	Contains []string
}

// SeverityRule maps any of Contains to Severity. Words match as substrings,
// digits only as a whole token.
type SeverityRule struct {
	Severity domain.TicketSeverity
	Contains []string
}

// Rules bundles the ordered keyword tables.
type Rules struct {
	Status   []StatusRule
	Category []CategoryRule
	Severity []SeverityRule
}

// DefaultRules returns the built-in keyword policy.
func DefaultRules() Rules {
	return Rules{
		Status: []StatusRule{
			{Status: domain.TicketStatusInProgress, Contains: []string{"progress"}},
			{Status: domain.TicketStatusEscalated, Contains: []string{"escala"}},
			{Status: domain.TicketStatusResolved, Contains: []string{"resolv", "closed"}},
			{Status: domain.TicketStatusOpen, Contains: []string{"open"}},
		},
		Category: []CategoryRule{
			{Category: domain.CategoryPackaging, Contains: []string{"packag", "torn", "seal", "leak"}},
			{Category: domain.CategoryTaste, Contains: []string{"taste", "smell", "flavor", "cheese"}},
			{Category: domain.CategoryQuality, Contains: []string{"mold", "spec", "spoil", "quality", "texture"}},
			{Category: domain.CategoryDelivery, Contains: []string{"late", "deliver", "shipping", "carrier"}},
		},
		Severity: []SeverityRule{
			{Severity: domain.SeverityHigh, Contains: []string{"high", "3", "urgent", "critical"}},
			{Severity: domain.SeverityMedium, Contains: []string{"medium", "2"}},
			{Severity: domain.SeverityLow, Contains: []string{"low", "1"}},
		},
	}
}

// Validate rejects rules naming values outside the canonical enumerations
// and rules without keywords.
func (r Rules) Validate() error {
	for i, rule := range r.Status {
		if _, ok := domain.ParseStatus(string(rule.Status)); !ok {
			return fmt.Errorf("status rule %d: unknown status %q", i, rule.Status)
		}
		if err := validateKeywords(rule.Contains); err != nil {
			return fmt.Errorf("status rule %d: %w", i, err)
		}
	}
	for i, rule := range r.Category {
		if _, ok := domain.ParseCategory(string(rule.Category)); !ok {
			return fmt.Errorf("category rule %d: unknown category %q", i, rule.Category)
		}
		if err := validateKeywords(rule.Contains); err != nil {
			return fmt.Errorf("category rule %d: %w", i, err)
		}
	}
	for i, rule := range r.Severity {
		if _, ok := domain.ParseSeverity(string(rule.Severity)); !ok {
			return fmt.Errorf("severity rule %d: unknown severity %q", i, rule.Severity)
		}
		if err := validateKeywords(rule.Contains); err != nil {
			return fmt.Errorf("severity rule %d: %w", i, err)
		}
	}
	return nil
}

func validateKeywords(words []string) error {
	if len(words) == 0 {
		return fmt.Errorf("no keywords")
	}
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("blank keyword")
		}
	}
	return nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
