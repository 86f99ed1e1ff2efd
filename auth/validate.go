// Package auth vets candidate master passwords before any key material is
// derived from them: a baseline character policy, a zxcvbn guessability
// score, and an optional breach-corpus lookup.
package auth

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

const minMasterLength = 12

// ValidateMasterPassword enforces the baseline policy: minimum length plus
// at least one uppercase letter, one digit, and one special character.
func ValidateMasterPassword(pw string) error {
	if len(pw) < minMasterLength {
		return fmt.Errorf("master password must be at least %d characters long", minMasterLength)
	}

	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	var missing []string
	if !upper {
		missing = append(missing, "an uppercase letter")
	}
	if !digit {
		missing = append(missing, "a digit")
	}
	if !special {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("master password must include %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateOptions controls the advanced master-password checks.
type ValidateOptions struct {
	// MinZXCVBNScore is the minimum acceptable zxcvbn score (0-4).
	MinZXCVBNScore int
	// EnableHIBP turns on the k-anonymity breach lookup. Network failures
	// fail open: a breach check should never brick vault setup offline.
	EnableHIBP bool
}

// DefaultValidateOptions requires a strong score and skips the network check.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{
		MinZXCVBNScore: 3,
		EnableHIBP:     false,
	}
}

// ValidateMasterPasswordAdvanced layers estimator and breach checks on top
// of the baseline policy.
func ValidateMasterPasswordAdvanced(ctx context.Context, pw string, opts ValidateOptions) error {
	if err := ValidateMasterPassword(pw); err != nil {
		return err
	}

	strength := zxcvbn.PasswordStrength(pw, nil)
	if strength.Score < opts.MinZXCVBNScore {
		return fmt.Errorf("password is too guessable (score %d, need %d)", strength.Score, opts.MinZXCVBNScore)
	}

	if opts.EnableHIBP {
		count, err := CheckHIBP(ctx, pw)
		if err == nil && count > 0 {
			return fmt.Errorf("password appears in %d known breaches", count)
		}
	}

	return nil
}
