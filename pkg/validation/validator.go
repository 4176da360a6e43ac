package validation

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Validator provides input validation with security screening for the
// authentication surface.
type Validator struct {
	validator         *validator.Validate
	logger            *zap.Logger
	sanitizer         *bluemonday.Policy
	sqlInjectionRegex *regexp.Regexp
	xssRegex          *regexp.Regexp
	emailRegex        *regexp.Regexp
	usernameRegex     *regexp.Regexp
}

// NewValidator creates a new validator instance with security configurations
func NewValidator(logger *zap.Logger) *Validator {
	v := &Validator{
		validator: validator.New(),
		logger:    logger,
		sanitizer: bluemonday.StrictPolicy(),
		sqlInjectionRegex: regexp.MustCompile(
			`(?i)(union|select|insert|update|delete|drop|create|alter|exec|execute|script|javascript|vbscript|onload|onerror|onclick|expression|eval|fromcharcode|document\.write|document\.cookie)`),
		xssRegex: regexp.MustCompile(
			`(?i)(<script|<iframe|<object|<embed|<link|<meta|javascript:|vbscript:|data:|on\w+\s*=)`),
		emailRegex:    regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
		usernameRegex: regexp.MustCompile(`^[a-zA-Z0-9_-]+$`),
	}

	v.registerCustomValidators()

	return v
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Message)
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs ValidationErrors
	for _, err := range err.(validator.ValidationErrors) {
		validationErrs = append(validationErrs, ValidationError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Message: v.getErrorMessage(err),
		})
	}

	return validationErrs
}

// SanitizeInput sanitizes user input against XSS and markup smuggling.
// Never applied to passwords, which go straight to the hasher.
func (v *Validator) SanitizeInput(input string) string {
	if input == "" {
		return input
	}

	sanitized := strings.TrimSpace(input)
	sanitized = v.sanitizer.Sanitize(sanitized)
	sanitized = html.UnescapeString(sanitized)

	return sanitized
}

// ValidateEmail validates and normalizes an email address
func (v *Validator) ValidateEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return "", fmt.Errorf("email cannot be empty")
	}

	if len(email) > 254 {
		return "", fmt.Errorf("email exceeds maximum length")
	}

	if !v.emailRegex.MatchString(email) {
		return "", fmt.Errorf("invalid email format")
	}

	if v.sqlInjectionRegex.MatchString(email) || v.xssRegex.MatchString(email) {
		v.logger.Warn("suspicious email input rejected", zap.String("field", "email"))
		return "", fmt.Errorf("email contains invalid characters")
	}

	return email, nil
}

// ValidateUsername validates and sanitizes a username
func (v *Validator) ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return "", fmt.Errorf("username cannot be empty")
	}

	if len(username) < 3 || len(username) > 30 {
		return "", fmt.Errorf("username must be between 3 and 30 characters")
	}

	if !v.usernameRegex.MatchString(username) {
		return "", fmt.Errorf("username can only contain letters, numbers, underscores, and hyphens")
	}

	return username, nil
}

// registerCustomValidators registers custom validation rules
func (v *Validator) registerCustomValidators() {
	v.validator.RegisterValidation("secure_string", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return !v.sqlInjectionRegex.MatchString(value) && !v.xssRegex.MatchString(value)
	})

	v.validator.RegisterValidation("alphanum_hyphen", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return v.usernameRegex.MatchString(value)
	})
}

// getErrorMessage returns a human-readable error message for validation errors
func (v *Validator) getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and numbers", fe.Field())
	case "secure_string":
		return fmt.Sprintf("%s contains invalid characters", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
