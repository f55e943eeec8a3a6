// SPDX-License-Identifier: GPL-3.0-or-later
package signals

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed default_policy.toml
var defaultPolicy string

// Rule is true if all of its configured conditions hold. Text is matched against the lower-cased
// subject and snippet, the sender lists against the lower-cased sender (any entry suffices).
type Rule struct {
	Name           string   `toml:"name"`
	Text           string   `toml:"text"`
	SenderContains []string `toml:"sender_contains"`
	SenderPrefix   []string `toml:"sender_prefix"`
}

type Policy struct {
	Version    string `toml:"version"`
	Exclusions []Rule `toml:"exclusions"`
	Strong     []Rule `toml:"strong"`
	Medium     []Rule `toml:"medium"`
}

func DefaultPolicy() *Policy {
	policy, err := ParsePolicy(defaultPolicy)
	if err != nil {
		panic("embedded policy is invalid: " + err.Error())
	}
	return policy
}

func ParsePolicy(data string) (*Policy, error) {
	policy := &Policy{}
	_, err := toml.Decode(data, policy)
	if err != nil {
		return nil, fmt.Errorf("could not decode policy: %w", err)
	}

	return policy, nil
}

func LoadPolicyFile(filename string) (*Policy, error) {
	policy := &Policy{}
	_, err := toml.DecodeFile(filename, policy)
	if err != nil {
		return nil, fmt.Errorf("could not read policy file: %w", err)
	}

	return policy, nil
}

type compiledRule struct {
	name           string
	text           *regexp.Regexp
	senderContains []string
	senderPrefix   []string
}

func (r *compiledRule) matches(sender, text string) bool {
	if r.text != nil && !r.text.MatchString(text) {
		return false
	}
	if len(r.senderContains) > 0 && !anyFunc(r.senderContains, sender, strings.Contains) {
		return false
	}
	if len(r.senderPrefix) > 0 && !anyFunc(r.senderPrefix, sender, strings.HasPrefix) {
		return false
	}
	return true
}

func anyFunc(needles []string, s string, f func(string, string) bool) bool {
	for _, n := range needles {
		if f(s, n) {
			return true
		}
	}
	return false
}

func compileRules(kind string, rules []Rule) ([]*compiledRule, error) {
	compiled := make([]*compiledRule, 0, len(rules))
	for i, rule := range rules {
		name := rule.Name
		if len(name) == 0 {
			name = fmt.Sprintf("%s[%d]", kind, i)
		}

		if len(rule.Text) == 0 && len(rule.SenderContains) == 0 && len(rule.SenderPrefix) == 0 {
			return nil, fmt.Errorf("rule %s has no condition", name)
		}

		cr := &compiledRule{
			name:           name,
			senderContains: lowerAll(rule.SenderContains),
			senderPrefix:   lowerAll(rule.SenderPrefix),
		}
		if len(rule.Text) > 0 {
			re, err := regexp.Compile("(?i)" + rule.Text)
			if err != nil {
				return nil, fmt.Errorf("could not compile pattern of rule %s: %w", name, err)
			}
			cr.text = re
		}
		compiled = append(compiled, cr)
	}

	return compiled, nil
}

func lowerAll(values []string) []string {
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		lowered = append(lowered, strings.ToLower(v))
	}
	return lowered
}
