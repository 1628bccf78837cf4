package common

import "regexp"

// CompileInsensitive compiles pattern so that it matches case-insensitively.
func CompileInsensitive(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// MatchRegex compiles and matches a case-insensitive pattern against a string.
// Returns an error if the pattern is invalid.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := CompileInsensitive(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}
