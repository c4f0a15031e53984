package users

import "regexp"

// Ukrainian mobile numbers in full international form.
var phonePattern = regexp.MustCompile(`^\+380\d{9}$`)

var phoneJunk = regexp.MustCompile(`[^0-9+]`)

// NormalizePhone strips formatting characters and validates what is left.
// The empty string and a bare "+380" prefix normalize to "" (stored as null);
// anything else must be a full +380 number. ok is false when the input is not
// a usable phone number.
func NormalizePhone(raw string) (normalized string, ok bool) {
	cleaned := phoneJunk.ReplaceAllString(raw, "")

	if cleaned == "" || cleaned == "+380" {
		return "", true
	}

	if !phonePattern.MatchString(cleaned) {
		return "", false
	}

	return cleaned, true
}
