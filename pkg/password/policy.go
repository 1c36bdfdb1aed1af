package password

import "fmt"

// Policy describes the shape a password must have.
type Policy struct {
	MinimumLength           int  `mapstructure:"minimum_length" json:"minimum_length" envconfig:"minimum_length" validate:"min=1"`
	MinimumUniqueCharacters int  `mapstructure:"minimum_unique_characters" json:"minimum_unique_characters" envconfig:"minimum_unique_characters" validate:"min=1"`
	RequireUppercase        bool `mapstructure:"require_uppercase" json:"require_uppercase" envconfig:"require_uppercase"`
	RequireLowercase        bool `mapstructure:"require_lowercase" json:"require_lowercase" envconfig:"require_lowercase"`
	RequireDigit            bool `mapstructure:"require_digit" json:"require_digit" envconfig:"require_digit"`
	RequireSymbol           bool `mapstructure:"require_symbol" json:"require_symbol" envconfig:"require_symbol"`
}

// DefaultPolicy is used when no policy is configured.
func DefaultPolicy() *Policy {
	return &Policy{
		MinimumLength:           8,
		MinimumUniqueCharacters: 4,
		RequireUppercase:        true,
		RequireLowercase:        true,
		RequireDigit:            true,
		RequireSymbol:           true,
	}
}

// Violation codes reported by Validate.
const (
	CodeTooShort            = "PasswordTooShort"
	CodeRequiresUniqueChars = "PasswordRequiresUniqueChars"
	CodeRequiresNonAlphanum = "PasswordRequiresNonAlphanumeric"
	CodeRequiresDigit       = "PasswordRequiresDigit"
	CodeRequiresLower       = "PasswordRequiresLower"
	CodeRequiresUpper       = "PasswordRequiresUpper"
)

// Violation is one rule a password failed.
type Violation struct {
	Code        string
	Description string
}

// Validate checks pw against policy and returns every rule it breaks.
func Validate(policy *Policy, pw string) []Violation {
	if policy == nil {
		policy = DefaultPolicy()
	}

	var violations []Violation
	if len(pw) < policy.MinimumLength {
		violations = append(violations, Violation{
			Code:        CodeTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", policy.MinimumLength),
		})
	}

	var hasUpper, hasLower, hasDigit, hasOther bool
	distinct := make(map[rune]struct{})
	for _, r := range pw {
		distinct[r] = struct{}{}
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasOther = true
		}
	}

	if policy.RequireSymbol && !hasOther {
		violations = append(violations, Violation{
			Code:        CodeRequiresNonAlphanum,
			Description: "Passwords must have at least one non alphanumeric character.",
		})
	}
	if policy.RequireDigit && !hasDigit {
		violations = append(violations, Violation{
			Code:        CodeRequiresDigit,
			Description: "Passwords must have at least one digit ('0'-'9').",
		})
	}
	if policy.RequireLowercase && !hasLower {
		violations = append(violations, Violation{
			Code:        CodeRequiresLower,
			Description: "Passwords must have at least one lowercase ('a'-'z').",
		})
	}
	if policy.RequireUppercase && !hasUpper {
		violations = append(violations, Violation{
			Code:        CodeRequiresUpper,
			Description: "Passwords must have at least one uppercase ('A'-'Z').",
		})
	}
	if len(distinct) < policy.MinimumUniqueCharacters {
		violations = append(violations, Violation{
			Code:        CodeRequiresUniqueChars,
			Description: fmt.Sprintf("Passwords must use at least %d different characters.", policy.MinimumUniqueCharacters),
		})
	}

	return violations
}
