package purchase

import "strings"

// IsValidCardNumber reports whether number passes the Luhn checksum. Spaces and
// dashes are ignored; any other non-digit character makes the number invalid.
func IsValidCardNumber(number string) bool {
	digits := stripCardSeparators(number)
	if digits == "" {
		return false
	}

	sum := 0
	for i := 0; i < len(digits); i++ {
		c := digits[len(digits)-1-i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

func stripCardSeparators(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}
