package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dkoca/meshkit/errors"
)

// Password rule names reported in field errors.
const (
	RuleMinLength  = "min_length"
	RuleMaxLength  = "max_length"
	RuleUppercase  = "uppercase"
	RuleLowercase  = "lowercase"
	RuleDigit      = "digit"
	RuleSpecial    = "special"
	RuleWhitespace = "whitespace"
	RuleDenyList   = "deny_list"
)

var (
	upperRe      = regexp.MustCompile(`[A-Z]`)
	lowerRe      = regexp.MustCompile(`[a-z]`)
	digitRe      = regexp.MustCompile(`[0-9]`)
	specialRe    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRe = regexp.MustCompile(`\s`)
)

// PasswordPolicy defines the rules a password must satisfy.
type PasswordPolicy struct {
	MinLength          int      `yaml:"min_length" mapstructure:"min_length"`
	MaxLength          int      `yaml:"max_length" mapstructure:"max_length"`
	RequireUppercase   bool     `yaml:"require_uppercase" mapstructure:"require_uppercase"`
	RequireLowercase   bool     `yaml:"require_lowercase" mapstructure:"require_lowercase"`
	RequireDigit       bool     `yaml:"require_digit" mapstructure:"require_digit"`
	RequireSpecial     bool     `yaml:"require_special" mapstructure:"require_special"`
	DisallowWhitespace bool     `yaml:"disallow_whitespace" mapstructure:"disallow_whitespace"`
	DenyList           []string `yaml:"deny_list" mapstructure:"deny_list"`
}

// DefaultPasswordPolicy returns the standard policy: at least 8 characters
// with one uppercase, one lowercase, one digit, one special character, no
// whitespace, and a small deny-list of notoriously common passwords.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:          8,
		MaxLength:          128,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecial:     true,
		DisallowWhitespace: true,
		DenyList: []string{
			"password", "12345678", "qwertyui", "letmein1", "iloveyou",
		},
	}
}

// Check validates the password against the policy. It returns nil when every
// rule passes, otherwise a VALIDATION_ERROR AppError whose details list one
// field error per failed rule.
func (p PasswordPolicy) Check(password string) *errors.AppError {
	v := New()

	if len(password) < p.MinLength {
		v.AddError(RuleMinLength, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		v.AddError(RuleMaxLength, fmt.Sprintf("must be at most %d characters", p.MaxLength))
	}
	if p.RequireUppercase && !upperRe.MatchString(password) {
		v.AddError(RuleUppercase, "must contain an uppercase letter")
	}
	if p.RequireLowercase && !lowerRe.MatchString(password) {
		v.AddError(RuleLowercase, "must contain a lowercase letter")
	}
	if p.RequireDigit && !digitRe.MatchString(password) {
		v.AddError(RuleDigit, "must contain a digit")
	}
	if p.RequireSpecial && !specialRe.MatchString(password) {
		v.AddError(RuleSpecial, "must contain a special character")
	}
	if p.DisallowWhitespace && whitespaceRe.MatchString(password) {
		v.AddError(RuleWhitespace, "must not contain whitespace")
	}
	if p.inDenyList(password) {
		v.AddError(RuleDenyList, "is too common")
	}

	return v.Validate()
}

func (p PasswordPolicy) inDenyList(password string) bool {
	lowered := strings.ToLower(password)
	for _, denied := range p.DenyList {
		if lowered == strings.ToLower(denied) {
			return true
		}
	}
	return false
}
