package core

import (
	"fmt"
	"strings"

	"axiapac.com/attendance/attendance/model"
)

// Classify returns the first keyword, in vocabulary order, whose token
// appears anywhere in the text. Matching is case-insensitive.
func Classify(text string) (model.Keyword, bool) {
	lower := strings.ToLower(text)
	for _, k := range model.Keywords {
		if strings.Contains(lower, k.Token()) {
			return k, true
		}
	}
	return model.None, false
}

// ParseKeyword accepts an enum name ("BREAK_START"), a token ("#breakstart")
// or the bare token word ("breakstart").
func ParseKeyword(s string) (model.Keyword, error) {
	v := strings.TrimSpace(s)
	for _, k := range model.Keywords {
		if strings.EqualFold(v, string(k)) || strings.EqualFold(v, k.Token()) || strings.EqualFold("#"+v, k.Token()) {
			return k, nil
		}
	}
	return model.None, fmt.Errorf("%w: %q", ErrUnknownKeyword, s)
}
