package forms

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordMinLength is the shortest password accepted.
const PasswordMinLength = 8

const (
	msgPasswordMismatch = "The two password fields didn’t match."
	msgPasswordShort    = "This password is too short. It must contain at least 8 characters."
	msgPasswordNumeric  = "This password is entirely numeric."
	msgPasswordCommon   = "This password is too common."
)

// maxSimilarity is the ratio above which a password counts as derived from a user attribute.
const maxSimilarity = 0.7

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {}, "12345678": {},
	"123456789": {}, "1234567890": {}, "11111111": {}, "qwerty123": {}, "qwertyuiop": {},
	"iloveyou": {}, "abc12345": {}, "letmein1": {}, "welcome1": {}, "admin123": {},
	"football": {}, "baseball": {}, "sunshine": {}, "princess": {}, "trustno1": {},
	"superman": {}, "starwars": {}, "whatever": {}, "computer": {}, "michelle": {},
}

// UserAttribute is a named user value a password must not resemble.
type UserAttribute struct {
	Label string
	Value string
}

// PasswordProblems runs the password validators and returns their messages in order.
func PasswordProblems(password string, attrs ...UserAttribute) []string {
	var problems []string

	lower := strings.ToLower(password)
	for _, attr := range attrs {
		if tooSimilar(lower, strings.ToLower(attr.Value)) {
			problems = append(problems, "The password is too similar to the "+attr.Label+".")
			break
		}
	}
	if utf8.RuneCountInString(password) < PasswordMinLength {
		problems = append(problems, msgPasswordShort)
	}
	if _, ok := commonPasswords[lower]; ok {
		problems = append(problems, msgPasswordCommon)
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, msgPasswordNumeric)
	}
	return problems
}

// tooSimilar compares the password with the whole attribute and with each of its word parts.
func tooSimilar(password, attr string) bool {
	if password == "" || attr == "" {
		return false
	}
	parts := strings.FieldsFunc(attr, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, candidate := range append([]string{attr}, parts...) {
		if similarity(password, candidate) >= maxSimilarity {
			return true
		}
	}
	return false
}

// similarity is 2*M/T where M is the longest common substring length and T the total length.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 0
	}
	longest := 0
	prev := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > longest {
					longest = cur[j]
				}
			}
		}
		prev = cur
	}
	return 2 * float64(longest) / float64(total)
}
