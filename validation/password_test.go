package validation_test

import (
	"testing"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/validation"
)

func failedRules(t *testing.T, err *errors.AppError) map[string]bool {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	fields, ok := err.Details["fields"].([]validation.FieldError)
	if !ok {
		t.Fatalf("unexpected details shape: %#v", err.Details)
	}
	rules := make(map[string]bool, len(fields))
	for _, f := range fields {
		rules[f.Field] = true
	}
	return rules
}

func TestPasswordPolicy_ValidPasswordPasses(t *testing.T) {
	policy := validation.DefaultPasswordPolicy()
	if err := policy.Check("Str0ng!Pass"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
}

func TestPasswordPolicy_TooShortRejected(t *testing.T) {
	policy := validation.DefaultPasswordPolicy()
	policy.MinLength = 10

	err := policy.Check("Sh0rt!pw")
	rules := failedRules(t, err)
	if !rules[validation.RuleMinLength] {
		t.Fatalf("expected min_length failure, got %v", rules)
	}
	if err.Code != errors.ErrCodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %s", err.Code)
	}
	if err.HTTPStatus != 400 {
		t.Fatalf("expected 400, got %d", err.HTTPStatus)
	}
}

func TestPasswordPolicy_EachRuleReported(t *testing.T) {
	policy := validation.DefaultPasswordPolicy()

	// Lowercase-only, too short, no digit/upper/special, contains a space.
	rules := failedRules(t, policy.Check("ab c"))

	for _, want := range []string{
		validation.RuleMinLength,
		validation.RuleUppercase,
		validation.RuleDigit,
		validation.RuleSpecial,
		validation.RuleWhitespace,
	} {
		if !rules[want] {
			t.Errorf("expected rule %s to fail, got %v", want, rules)
		}
	}
	if rules[validation.RuleLowercase] {
		t.Error("lowercase rule should have passed")
	}
}

func TestPasswordPolicy_DenyList(t *testing.T) {
	policy := validation.PasswordPolicy{
		MinLength: 4,
		DenyList:  []string{"Password"},
	}

	rules := failedRules(t, policy.Check("password"))
	if !rules[validation.RuleDenyList] {
		t.Fatalf("deny list should match case-insensitively, got %v", rules)
	}
}

func TestPasswordPolicy_MaxLength(t *testing.T) {
	policy := validation.PasswordPolicy{MinLength: 1, MaxLength: 5}

	rules := failedRules(t, policy.Check("toolong"))
	if !rules[validation.RuleMaxLength] {
		t.Fatalf("expected max_length failure, got %v", rules)
	}
}

func TestPasswordPolicy_OnlyConfiguredRulesApply(t *testing.T) {
	policy := validation.PasswordPolicy{MinLength: 4}
	if err := policy.Check("abcd"); err != nil {
		t.Fatalf("relaxed policy should accept plain password: %v", err)
	}
}
