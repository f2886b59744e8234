package valueobject

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for numbers that are not Brazilian mobile or landline numbers
var ErrInvalidPhone = errors.New("invalid phone number")

// Phone is a Brazilian phone number in E.164 digits without the plus sign, e.g. 5511987654321.
// WhatsApp identifies senders with this same representation.
type Phone string

// NewPhone normalizes user input such as "(11) 98765-4321" or "+55 11 98765 4321"
func NewPhone(raw string) (Phone, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimLeft(b.String(), "0")

	switch len(digits) {
	case 10, 11:
		digits = "55" + digits
	case 12, 13:
		if !strings.HasPrefix(digits, "55") {
			return "", ErrInvalidPhone
		}
	default:
		return "", ErrInvalidPhone
	}

	ddd := digits[2:4]
	if ddd[0] == '0' || ddd[1] == '0' {
		return "", ErrInvalidPhone
	}
	// 9-digit subscriber numbers are mobiles and must start with 9
	if len(digits) == 13 && digits[4] != '9' {
		return "", ErrInvalidPhone
	}
	return Phone(digits), nil
}

// String returns the normalized digits
func (p Phone) String() string { return string(p) }

// Display formats the number as "+55 (11) 98765-4321"
func (p Phone) Display() string {
	s := string(p)
	if len(s) < 12 {
		return s
	}
	local := s[4:]
	split := len(local) - 4
	return "+" + s[:2] + " (" + s[2:4] + ") " + local[:split] + "-" + local[split:]
}
