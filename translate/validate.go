package translate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyResult means a translator answered with blank text.
var ErrEmptyResult = errors.New("empty translation")

// LostTokenError means an answer dropped a format code of its source.
type LostTokenError struct {
	Token  string
	Answer string
}

func (e *LostTokenError) Error() string {
	return fmt.Sprintf("format code %q lost in %q", e.Token, e.Answer)
}

// formatToken matches printf verbs (%s, %1$s, %.2f, %%), section-sign
// formatting codes (§a, §l) and indexed placeholders ({0}).
var formatToken = regexp.MustCompile(`%(?:\d+\$)?[-+0#]*\d*(?:\.\d+)?[sdfxXcboeEgG]|%%|§[0-9a-fk-orA-FK-OR]|\{\d+\}`)

// Validate reports whether out is a usable translation of src. Blank
// answers and answers missing a format code of src are rejected.
func Validate(src, out string) error {
	if strings.TrimSpace(out) == "" {
		return ErrEmptyResult
	}
	if tok, ok := lostToken(src, out); ok {
		return &LostTokenError{Token: tok, Answer: out}
	}
	return nil
}

// lostToken reports the first format token of src that out has fewer of.
func lostToken(src, out string) (string, bool) {
	want := formatToken.FindAllString(src, -1)
	if len(want) == 0 {
		return "", false
	}
	have := make(map[string]int)
	for _, t := range formatToken.FindAllString(out, -1) {
		have[strings.ToLower(t)]++
	}
	for _, t := range want {
		k := strings.ToLower(t)
		if have[k] == 0 {
			return t, true
		}
		have[k]--
	}
	return "", false
}
