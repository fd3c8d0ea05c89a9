package service

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/squadboard/backend/internal/common/config"
	commonerrors "github.com/squadboard/backend/internal/common/errors"
)

var (
	ErrValidationRequired = commonerrors.NewDomainError(
		"VALIDATION_REQUIRED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"All fields are required",
	)

	ErrValidationUsernameRequired = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_REQUIRED",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Username is required",
	)

	ErrValidationUsernameLength = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username length is out of range",
	)

	ErrValidationUsernameChars = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_CHARS",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Username may contain only letters, digits, '_' and '-', and must start and end with a letter or digit",
	)

	ErrValidationPasswordLength = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password length is out of range",
	)

	ErrValidationPasswordLower = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LOWERCASE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Password must contain at least one lowercase letter",
	)

	ErrValidationPasswordUpper = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_UPPERCASE",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"Password must contain at least one uppercase letter",
	)

	ErrValidationPasswordSymbol = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_SYMBOL",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must contain a special character",
	)
)

const (
	lowercaseLetters = "abcdefghijklmnopqrstuvwxyz"
	uppercaseLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	usernameTag      = "username"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_-]*[A-Za-z0-9])?$`)

type rule struct {
	field func(username, password string) any
	tag   string
	err   commonerrors.DomainError
}

// CredentialValidator checks signup credentials against a PasswordPolicy.
// Rules run in a fixed order and the first violation is returned.
type CredentialValidator struct {
	validate *validator.Validate
	rules    []rule
}

func NewCredentialValidator(policy config.PasswordPolicy) *CredentialValidator {
	v := validator.New()
	_ = v.RegisterValidation(usernameTag, func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})

	username := func(u, _ string) any { return u }
	password := func(_, p string) any { return p }
	passwordBytes := func(_, p string) any { return len(p) }

	rules := []rule{
		{
			field: username,
			tag:   fmt.Sprintf("min=%d,max=%d", policy.UsernameMinLength, policy.UsernameMaxLength),
			err: ErrValidationUsernameLength.WithMessage(fmt.Sprintf(
				"Username must be between %d and %d characters", policy.UsernameMinLength, policy.UsernameMaxLength)),
		},
		{field: username, tag: usernameTag, err: ErrValidationUsernameChars},
		{
			field: passwordBytes,
			tag:   fmt.Sprintf("min=%d,max=%d", policy.MinLength, policy.MaxLength),
			err: ErrValidationPasswordLength.WithMessage(fmt.Sprintf(
				"Password must be between %d and %d characters", policy.MinLength, policy.MaxLength)),
		},
	}
	if policy.RequireLower {
		rules = append(rules, rule{field: password, tag: "containsany=" + lowercaseLetters, err: ErrValidationPasswordLower})
	}
	if policy.RequireUpper {
		rules = append(rules, rule{field: password, tag: "containsany=" + uppercaseLetters, err: ErrValidationPasswordUpper})
	}
	if policy.RequireSymbol {
		rules = append(rules, rule{
			field: password,
			tag:   "containsany=" + policy.Symbols,
			err: ErrValidationPasswordSymbol.WithMessage(fmt.Sprintf(
				"Password must contain at least one special character (%s)", policy.Symbols)),
		})
	}

	return &CredentialValidator{validate: v, rules: rules}
}

func (cv *CredentialValidator) Validate(username, password string) error {
	if err := RequireCredentials(username, password); err != nil {
		return err
	}

	for _, r := range cv.rules {
		if err := cv.validate.Var(r.field(username, password), r.tag); err != nil {
			return r.err
		}
	}
	return nil
}

// RequireCredentials only checks that both values are present.
func RequireCredentials(username, password string) error {
	if username == "" || password == "" {
		return ErrValidationRequired
	}
	return nil
}

func AsValidationError(err error) (commonerrors.DomainError, bool) {
	de, ok := commonerrors.AsDomainError(err)
	if !ok || de.Category() != commonerrors.CategoryValidation {
		return nil, false
	}
	return de, true
}
