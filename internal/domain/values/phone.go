package values

import (
	"encoding/json"
	"fmt"
)

// CountryCode is prepended to bare 10-digit subscriber numbers. All traffic
// handled by the pipeline originates from Indian exophones.
const CountryCode = "91"

// NormalizedPhone is a canonical digit-string key derived from a raw phone
// value. Two raw strings that normalize to the same key are treated as the
// same subscriber.
type NormalizedPhone struct {
	key string
}

// Normalize canonicalizes a raw phone string into a comparable digit key.
// The second return value is false when the input carries no digits at all.
//
// Handled formats:
//
//	+919876543210 -> 919876543210
//	919876543210  -> 919876543210
//	9876543210    -> 919876543210 (country code added)
//	08840810719   -> 918840810719 (trunk prefix dropped, country code added)
//
// Inputs longer than 12 digits keep their last 12 (rightmost digits dominate;
// the remainder is assumed to be a trunk or extension prefix). Any other
// length is returned as-is: a best-effort key, not a validation failure.
func Normalize(raw string) (NormalizedPhone, bool) {
	digits := stripNonDigits(raw)
	if digits == "" {
		return NormalizedPhone{}, false
	}

	if len(digits) == 11 && digits[0] == '0' {
		digits = digits[1:]
	}

	switch {
	case len(digits) == 10:
		digits = CountryCode + digits
	case len(digits) == 12 && digits[:2] == CountryCode:
		// already canonical
	case len(digits) > 12:
		digits = digits[len(digits)-12:]
	}

	return NormalizedPhone{key: digits}, true
}

// MustNormalize normalizes and panics on digit-free input (for tests).
func MustNormalize(raw string) NormalizedPhone {
	p, ok := Normalize(raw)
	if !ok {
		panic(fmt.Sprintf("phone %q has no digits", raw))
	}
	return p
}

// Key returns the canonical digit string.
func (p NormalizedPhone) Key() string {
	return p.key
}

func (p NormalizedPhone) String() string {
	return p.key
}

// IsEmpty reports whether the key is unset.
func (p NormalizedPhone) IsEmpty() bool {
	return p.key == ""
}

// Equal checks if two NormalizedPhone values are equal.
func (p NormalizedPhone) Equal(other NormalizedPhone) bool {
	return p.key == other.key
}

// MarshalJSON implements JSON marshaling.
func (p NormalizedPhone) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.key)
}

// UnmarshalJSON implements JSON unmarshaling. The stored key is re-normalized
// so keys stay canonical regardless of the transport.
func (p *NormalizedPhone) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*p = NormalizedPhone{}
		return nil
	}
	norm, ok := Normalize(raw)
	if !ok {
		return fmt.Errorf("phone %q has no digits", raw)
	}
	*p = norm
	return nil
}

func stripNonDigits(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// LastTenDigits returns the trailing 10 digits of a raw phone value, used for
// exophone substring matching. Returns the full digit string when shorter.
func LastTenDigits(raw string) string {
	digits := stripNonDigits(raw)
	if len(digits) <= 10 {
		return digits
	}
	return digits[len(digits)-10:]
}
