package security

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

// ErrWeakPassword is returned when a candidate password fails policy.
var ErrWeakPassword = errors.New("security: password does not meet policy")

// PasswordRule checks a single policy requirement.
type PasswordRule interface {
	Check(password string) error
}

// PasswordRuleFunc adapts a function to PasswordRule.
type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Check(password string) error { return f(password) }

// MinLengthRule requires at least n characters.
func MinLengthRule(n int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len(password) < n {
			return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, n)
		}
		return nil
	})
}

// RequireLetterRule requires at least one letter.
func RequireLetterRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsLetter(r) {
				return nil
			}
		}
		return fmt.Errorf("%w: must contain a letter", ErrWeakPassword)
	})
}

// RequireDigitRule requires at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return fmt.Errorf("%w: must contain a digit", ErrWeakPassword)
	})
}

// MinStrengthRule requires a zxcvbn score of at least score (0 to 4).
func MinStrengthRule(score int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		result := zxcvbn.PasswordStrength(password, nil)
		if result.Score < score {
			return fmt.Errorf("%w: too guessable", ErrWeakPassword)
		}
		return nil
	})
}

// PasswordValidator applies a set of rules in order and reports the first
// failure.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator composes a validator from rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: rules}
}

// DefaultPasswordValidator mirrors the registration policy: 8 characters
// minimum, at least one letter and one digit, zxcvbn score of 2 or higher.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		RequireLetterRule(),
		RequireDigitRule(),
		MinStrengthRule(2),
	)
}

// Validate checks the password, supplying userInputs (such as the account
// email) to the strength estimator as forbidden material.
func (v *PasswordValidator) Validate(password string, userInputs ...string) error {
	for _, rule := range v.rules {
		if err := rule.Check(password); err != nil {
			return err
		}
	}

	for _, input := range userInputs {
		input = strings.TrimSpace(strings.ToLower(input))
		if input == "" {
			continue
		}
		if strings.Contains(strings.ToLower(password), input) {
			return fmt.Errorf("%w: must not contain account identifiers", ErrWeakPassword)
		}
	}

	return nil
}
