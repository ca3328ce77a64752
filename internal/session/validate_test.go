package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		want     error
	}{
		{"valid", "Abcdef1!", "Abcdef1!", nil},
		{"too short", "Ab1!", "Ab1!", ErrPasswordTooShort},
		{"short in characters, long in bytes", "Ab1@éé", "Ab1@éé", ErrPasswordTooShort},
		{"multibyte counted as characters", "Ab1@éééé", "Ab1@éééé", nil},
		{"no lowercase", "ABCDEF1!", "ABCDEF1!", ErrPasswordNoLower},
		{"no uppercase", "abcdef1!", "abcdef1!", ErrPasswordNoUpper},
		{"no digit", "Abcdefg!", "Abcdefg!", ErrPasswordNoDigit},
		{"no special", "Abcdefg1", "Abcdefg1", ErrPasswordNoSymbol},
		{"special outside set", "Abcdef1#", "Abcdef1#", ErrPasswordNoSymbol},
		{"mismatch", "Abcdef1!", "Abcdef1?", ErrPasswordMismatch},
		{"short wins over mismatch", "abc", "xyz", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.confirm)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "123456", NormalizeCode("123 456"))
	assert.Equal(t, "123456", NormalizeCode("1a2b3c4d5e6f7"))
	assert.Equal(t, "", NormalizeCode("abc"))

	c, err := ValidateCode(" 654-321 ")
	require.NoError(t, err)
	assert.Equal(t, "654321", c)

	_, err = ValidateCode("12345")
	assert.ErrorIs(t, err, ErrInvalidCode)
}
