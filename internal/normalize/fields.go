package normalize

import (
	"slices"
	"strings"
	"unicode"

	"github.com/banza/complaint-desk/internal/domain"
)

var defaultRules = DefaultRules()

// NormalizeStatus applies the built-in status rules.
func NormalizeStatus(raw string) domain.TicketStatus {
	return defaultRules.NormalizeStatus(raw)
}

// ClassifyCategory applies the built-in category rules.
func ClassifyCategory(text string) domain.TicketCategory {
	return defaultRules.ClassifyCategory(text)
}

// NormalizeStatus maps raw to a canonical status. It never fails: blank and
// unrecognised values become Open.
func (r Rules) NormalizeStatus(raw string) domain.TicketStatus {
	status, _ := r.MatchStatus(raw)
	return status
}

// MatchStatus is NormalizeStatus plus whether a rule (or the blank-means-Open
// convention) produced the value rather than the fallback.
func (r Rules) MatchStatus(raw string) (domain.TicketStatus, bool) {
	text := strings.ToLower(raw)
	for _, rule := range r.Status {
		if containsAny(text, rule.Contains) {
			return rule.Status, true
		}
	}
	if strings.TrimSpace(text) == "" {
		return domain.TicketStatusOpen, true
	}
	return domain.TicketStatusOpen, false
}

// ClassifyCategory infers a category from complaint text, Other when nothing matches.
func (r Rules) ClassifyCategory(text string) domain.TicketCategory {
	category, _ := r.MatchCategory(text)
	return category
}

// MatchCategory is ClassifyCategory plus whether a rule matched.
func (r Rules) MatchCategory(text string) (domain.TicketCategory, bool) {
	lower := strings.ToLower(text)
	for _, rule := range r.Category {
		if containsAny(lower, rule.Contains) {
			return rule.Category, true
		}
	}
	return domain.CategoryOther, false
}

// NormalizeSeverity maps a form level or spreadsheet value to a severity,
// Medium when nothing matches. Numeric keywords are level numbers and only
// match a whole token, so "10" or "2023-Q3" stay Medium.
func (r Rules) NormalizeSeverity(raw string) domain.TicketSeverity {
	lower := strings.ToLower(raw)
	tokens := strings.FieldsFunc(lower, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c)
	})
	for _, rule := range r.Severity {
		for _, w := range rule.Contains {
			w = strings.ToLower(w)
			if isNumber(w) {
				if slices.Contains(tokens, w) {
					return rule.Severity
				}
				continue
			}
			if strings.Contains(lower, w) {
				return rule.Severity
			}
		}
	}
	return domain.SeverityMedium
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
