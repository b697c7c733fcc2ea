package dialog

import (
	"regexp"
	"strings"
)

var (
	phonePattern       = regexp.MustCompile(`^(\+98|0)?9\d{9}$`)
	orderNumberPattern = regexp.MustCompile(`^[A-Z0-9-]+$`)
	digitsPattern      = regexp.MustCompile(`^\d+$`)
)

// NormalizeDigits converts Persian and Arabic-Indic digits to ASCII and trims
// surrounding whitespace. Users routinely type ids with a Persian keyboard.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidNationalID validates an Iranian national id: ten digits with a weighted
// mod-11 check digit. This is a pure syntactic check; whether the id belongs
// to a known customer is the gateway's concern.
func ValidNationalID(nid string) bool {
	if len(nid) != 10 || !digitsPattern.MatchString(nid) {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(nid[i]-'0') * (10 - i)
	}
	check := sum % 11
	last := int(nid[9] - '0')
	if check < 2 {
		return check == last
	}
	return 11-check == last
}

// ValidPhone validates an Iranian mobile number shape.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// ValidOrderNumber validates the reception number shape: digits or an
// uppercase alphanumeric code with dashes.
func ValidOrderNumber(number string) bool {
	if number == "" {
		return false
	}
	return digitsPattern.MatchString(number) || orderNumberPattern.MatchString(number)
}

// SerialShaped reports whether the input looks like a device serial, which is
// a twelve-digit code.
func SerialShaped(s string) bool {
	return len(s) == 12 && digitsPattern.MatchString(s)
}

// NationalIDShaped reports whether the input is ten digits. Shape only; the
// checksum is validated separately so a mistyped id counts as a failed
// verification attempt rather than noise.
func NationalIDShaped(s string) bool {
	return len(s) == 10 && digitsPattern.MatchString(s)
}
