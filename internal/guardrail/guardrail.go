package guardrail

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrContentViolation marks a query rejected by the input guardrail.
// Callers match it with errors.Is to tell a rejection apart from a
// dependency failure.
var ErrContentViolation = errors.New("input content violation")

// rules are known prompt-injection phrasings. This is a heuristic
// filter, not a security boundary: a determined user can rephrase
// around it. Extend the list here; call sites stay untouched.
var rules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore previous instructions`),
	regexp.MustCompile(`(?i)identify yourself`),
	regexp.MustCompile(`(?i)system prompt`),
	regexp.MustCompile(`(?i)you are a hacked`),
}

type Validator struct {
	rules []*regexp.Regexp
}

// NewValidator returns a validator with the built-in rule set.
func NewValidator() *Validator {
	return &Validator{rules: rules}
}

// NewValidatorWithRules builds a validator from explicit patterns.
// Patterns are compiled case-insensitive.
func NewValidatorWithRules(patterns []string) (*Validator, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid guardrail pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &Validator{rules: compiled}, nil
}

// Validate returns ErrContentViolation when the text matches any rule.
// The first match short-circuits; no side effects beyond the decision.
func (v *Validator) Validate(text string) error {
	for _, re := range v.rules {
		if re.MatchString(text) {
			return fmt.Errorf("%w: potential prompt injection detected", ErrContentViolation)
		}
	}
	return nil
}
