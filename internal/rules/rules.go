// Package rules assembles the header alias table and keyword policies used
// by ingestion, optionally overridden from a YAML file at startup.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banza/complaint-desk/internal/domain"
	"github.com/banza/complaint-desk/internal/ingest"
	"github.com/banza/complaint-desk/internal/normalize"
)

// Set is the read-only rule bundle built once at process start.
type Set struct {
	Aliases ingest.AliasTable
	Rules   normalize.Rules
}

type fileHeaders struct {
	Marker  string              `yaml:"marker"`
	Aliases map[string][]string `yaml:"aliases"`
}

type fileRule struct {
	Status   string   `yaml:"status"`
	Category string   `yaml:"category"`
	Severity string   `yaml:"severity"`
	Contains []string `yaml:"contains"`
}

type fileSet struct {
	Headers  fileHeaders `yaml:"headers"`
	Status   []fileRule  `yaml:"status"`
	Category []fileRule  `yaml:"category"`
	Severity []fileRule  `yaml:"severity"`
}

// Default returns the built-in rule set.
func Default() Set {
	return Set{Aliases: ingest.DefaultAliasTable(), Rules: normalize.DefaultRules()}
}

// Load reads overrides from path. An empty path yields Default().
func Load(path string) (Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read rules file: %w", err)
	}
	set, err := Parse(b)
	if err != nil {
		return Set{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return set, nil
}

// Parse applies YAML overrides on top of Default(). Header aliases replace
// the listed fields only; a status, category or severity list replaces the
// whole built-in list because its order is its precedence.
func Parse(data []byte) (Set, error) {
	var f fileSet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Set{}, fmt.Errorf("parse yaml: %w", err)
	}

	set := Default()

	override := ingest.AliasTable{Marker: f.Headers.Marker, Aliases: make(map[ingest.FieldKey][]string, len(f.Headers.Aliases))}
	for field, aliases := range f.Headers.Aliases {
		override.Aliases[ingest.FieldKey(field)] = aliases
	}
	set.Aliases = set.Aliases.Merge(override)

	if len(f.Status) > 0 {
		set.Rules.Status = make([]normalize.StatusRule, 0, len(f.Status))
		for i, r := range f.Status {
			status, ok := domain.ParseStatus(r.Status)
			if !ok {
				return Set{}, fmt.Errorf("status rule %d: unknown status %q", i, r.Status)
			}
			set.Rules.Status = append(set.Rules.Status, normalize.StatusRule{Status: status, Contains: lowerAll(r.Contains)})
		}
	}
	if len(f.Category) > 0 {
		set.Rules.Category = make([]normalize.CategoryRule, 0, len(f.Category))
		for i, r := range f.Category {
			category, ok := domain.ParseCategory(r.Category)
			if !ok {
				return Set{}, fmt.Errorf("category rule %d: unknown category %q", i, r.Category)
			}
			set.Rules.Category = append(set.Rules.Category, normalize.CategoryRule{Category: category, Contains: lowerAll(r.Contains)})
		}
	}
	if len(f.Severity) > 0 {
		set.Rules.Severity = make([]normalize.SeverityRule, 0, len(f.Severity))
		for i, r := range f.Severity {
			severity, ok := domain.ParseSeverity(r.Severity)
			if !ok {
				return Set{}, fmt.Errorf("severity rule %d: unknown severity %q", i, r.Severity)
			}
			set.Rules.Severity = append(set.Rules.Severity, normalize.SeverityRule{Severity: severity, Contains: lowerAll(r.Contains)})
		}
	}

	if err := set.Aliases.Validate(); err != nil {
		return Set{}, err
	}
	if err := set.Rules.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}
