package validation

import "regexp"

// Identifier formats
const (
	// UICPattern matches six character unit codes and the nine character
	// task force codes generated as TF + 7 hex digits
	UICPattern = `^[A-Z0-9]{6}$|^TF[0-9A-F]{7}$`

	// DoDIDPattern matches a 10 digit EDIPI
	DoDIDPattern = `^\d{10}$`
)

var (
	uicRe   = regexp.MustCompile(UICPattern)
	dodIDRe = regexp.MustCompile(DoDIDPattern)
)

// IsUIC reports whether s looks like a unit identification code
func IsUIC(s string) bool {
	return uicRe.MatchString(s)
}

// IsDoDID reports whether s is a 10 digit EDIPI
func IsDoDID(s string) bool {
	return dodIDRe.MatchString(s)
}
