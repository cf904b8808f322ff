// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("cpf", validateCPFField)
	validate.RegisterValidation("brphone", validateBRPhoneField)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateCPFField(fl validator.FieldLevel) bool {
	return ValidateCPF(fl.Field().String())
}

func validateBRPhoneField(fl validator.FieldLevel) bool {
	return ValidatePhone(fl.Field().String())
}

// ValidateCPF checks a Brazilian CPF number using the standard check-digit
// algorithm. Accepts formatted or bare input.
func ValidateCPF(cpf string) bool {
	cleaned := OnlyDigits(cpf)

	if len(cleaned) != 11 {
		return false
	}

	// Reject known invalid patterns (all same digit)
	allSame := true
	for i := 1; i < 11; i++ {
		if cleaned[i] != cleaned[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	digit := func(i int) int { return int(cleaned[i] - '0') }

	// First check digit
	sum := 0
	for i := 0; i < 9; i++ {
		sum += digit(i) * (10 - i)
	}
	remainder := (sum * 10) % 11
	if remainder == 10 {
		remainder = 0
	}
	if remainder != digit(9) {
		return false
	}

	// Second check digit
	sum = 0
	for i := 0; i < 10; i++ {
		sum += digit(i) * (11 - i)
	}
	remainder = (sum * 10) % 11
	if remainder == 10 {
		remainder = 0
	}
	return remainder == digit(10)
}

var brPhonePattern = regexp.MustCompile(`^(55)?\d{2}9\d{8}$`)

// ValidatePhone checks a Brazilian mobile number, with or without the 55
// country code.
func ValidatePhone(phone string) bool {
	return brPhonePattern.MatchString(OnlyDigits(phone))
}

// NormalizePhone strips formatting and prefixes the 55 country code.
func NormalizePhone(phone string) string {
	cleaned := OnlyDigits(phone)
	if !strings.HasPrefix(cleaned, "55") {
		cleaned = "55" + cleaned
	}
	return cleaned
}

var nonDigits = regexp.MustCompile(`\D`)

func OnlyDigits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// SanitizeInput trims user input to maxLength and strips control characters
// other than tab and newlines.
func SanitizeInput(input string, maxLength int) string {
	if len(input) > maxLength {
		input = input[:maxLength]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, input)
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "cpf":
		return "Invalid CPF check digits"
	case "brphone":
		return "Invalid Brazilian phone number"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " is invalid"
	}
}
