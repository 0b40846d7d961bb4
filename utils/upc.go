package utils

// UPCLength is the number of digits in a canonical identifier
const UPCLength = 12

// ValidUPC reports whether code is exactly UPCLength ASCII digits
func ValidUPC(code string) bool {
	if len(code) != UPCLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
