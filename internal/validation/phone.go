package validation

import (
	"fmt"
	"regexp"
)

// phoneRegex matches E.164 numbers: a plus sign, a non-zero leading digit,
// and at most 15 digits total.
var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// ValidatePhoneNumber validates an E.164 phone number
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return fmt.Errorf("phone number cannot be empty")
	}

	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("phone number must be in E.164 format (e.g. +15551234567)")
	}

	return nil
}
