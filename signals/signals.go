// SPDX-License-Identifier: GPL-3.0-or-later
package signals

import (
	"fmt"
	"strings"

	"github.com/CrawX/go-newsletter-assassin/domain"
)

// Extractor evaluates a Policy against records. It holds no mutable state and can be shared.
type Extractor struct {
	version    string
	exclusions []*compiledRule
	strong     []*compiledRule
	medium     []*compiledRule
}

func NewExtractor(policy *Policy) (*Extractor, error) {
	exclusions, err := compileRules("exclusions", policy.Exclusions)
	if err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", policy.Version, err)
	}
	strong, err := compileRules("strong", policy.Strong)
	if err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", policy.Version, err)
	}
	medium, err := compileRules("medium", policy.Medium)
	if err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", policy.Version, err)
	}

	return &Extractor{
		version:    policy.Version,
		exclusions: exclusions,
		strong:     strong,
		medium:     medium,
	}, nil
}

func (e *Extractor) Version() string {
	return e.version
}

// Extract evaluates every rule of the policy once, the result vectors follow the policy order.
func (e *Extractor) Extract(record *domain.EmailRecord) domain.SignalSet {
	text := strings.ToLower(record.Subject + " " + record.Snippet)
	sender := strings.ToLower(record.Sender)

	return domain.SignalSet{
		Exclusions: evaluate(e.exclusions, sender, text),
		Strong:     evaluate(e.strong, sender, text),
		Medium:     evaluate(e.medium, sender, text),
	}
}

// Matches lists the names of all matching rules, used for debug logging.
func (e *Extractor) Matches(record *domain.EmailRecord) []string {
	text := strings.ToLower(record.Subject + " " + record.Snippet)
	sender := strings.ToLower(record.Sender)

	names := []string{}
	for _, rules := range [][]*compiledRule{e.exclusions, e.strong, e.medium} {
		for _, r := range rules {
			if r.matches(sender, text) {
				names = append(names, r.name)
			}
		}
	}
	return names
}

func evaluate(rules []*compiledRule, sender, text string) []bool {
	result := make([]bool, len(rules))
	for i, r := range rules {
		result[i] = r.matches(sender, text)
	}
	return result
}
