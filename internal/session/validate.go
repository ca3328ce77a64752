package session

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordSpecials is the set of characters that satisfy the special-character rule
const PasswordSpecials = "@$!%*?&"

// CodeLength is the number of digits in an email verification code
const CodeLength = 6

// ValidatePassword checks the password policy and the confirmation, in the
// order the user sees the messages: length, lowercase, uppercase, digit,
// special character, then mismatch.
func ValidatePassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}

	switch {
	case !lower:
		return ErrPasswordNoLower
	case !upper:
		return ErrPasswordNoUpper
	case !digit:
		return ErrPasswordNoDigit
	case !special:
		return ErrPasswordNoSymbol
	case password != confirm:
		return ErrPasswordMismatch
	}
	return nil
}

// NormalizeCode strips everything but ASCII digits and truncates to CodeLength
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == CodeLength {
				break
			}
		}
	}
	return b.String()
}

// ValidateCode reports whether code (after normalization) has exactly six digits
func ValidateCode(code string) (string, error) {
	c := NormalizeCode(code)
	if len(c) != CodeLength {
		return "", ErrInvalidCode
	}
	return c, nil
}

func requireEmail(email string) (string, error) {
	e := strings.TrimSpace(email)
	if e == "" || strings.IndexFunc(e, unicode.IsSpace) >= 0 {
		return "", ErrEmailRequired
	}
	return e, nil
}
