// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCPF(t *testing.T) {
	tests := []struct {
		name  string
		cpf   string
		valid bool
	}{
		{"valid bare", "52998224725", true},
		{"valid formatted", "529.982.247-25", true},
		{"valid second vector", "111.444.777-35", true},
		{"wrong first check digit", "52998224715", false},
		{"wrong second check digit", "52998224724", false},
		{"all same digits", "11111111111", false},
		{"too short", "5299822472", false},
		{"too long", "529982247250", false},
		{"empty", "", false},
		{"letters", "abcdefghijk", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateCPF(tt.cpf))
		})
	}
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("5511987654321"))
	assert.True(t, ValidatePhone("11987654321"))
	assert.True(t, ValidatePhone("+55 (11) 98765-4321"))
	assert.False(t, ValidatePhone("1187654321"))  // landline, no 9 prefix
	assert.False(t, ValidatePhone("987654321"))   // missing area code
	assert.False(t, ValidatePhone(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5511987654321", NormalizePhone("11987654321"))
	assert.Equal(t, "5511987654321", NormalizePhone("5511987654321"))
	assert.Equal(t, "5511987654321", NormalizePhone("+55 (11) 98765-4321"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("hello", 100))
	assert.Equal(t, "hel", SanitizeInput("hello", 3))
	assert.Equal(t, "ab\ncd", SanitizeInput("ab\ncd", 100))
	assert.Equal(t, "abcd", SanitizeInput("ab\x00cd", 100))
}

func TestValidateStructWithCustomTags(t *testing.T) {
	type payload struct {
		CPF   string `validate:"required,cpf"`
		Phone string `validate:"required,brphone"`
	}

	err := ValidateStruct(payload{CPF: "52998224725", Phone: "5511987654321"})
	assert.NoError(t, err)

	err = ValidateStruct(payload{CPF: "52998224724", Phone: "5511987654321"})
	assert.Error(t, err)

	errs := GetValidationErrors(err)
	assert.Len(t, errs, 1)
	assert.Equal(t, "cpf", errs[0].Tag)
}
