// Package idgen mints ledger record refs. A ref is "<noun>-<random>": the
// noun segment keeps logs and CLI output readable, the random segment is a
// nanoid. Refs are opaque above the ledger boundary; nothing there parses
// them for meaning.
package idgen

import (
	"fmt"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set of the random segment.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters after the noun segment.
var Length = 12

// Ref mints a new record ref for the given noun, e.g. Ref("offer") returns
// "offer-4XkQzR81mWcD". The noun may not be empty or contain a hyphen; the
// hyphen separates the segments.
func Ref(noun string) (string, error) {
	if noun == "" || strings.ContainsAny(noun, "- ") {
		return "", fmt.Errorf("idgen: invalid noun %q", noun)
	}
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return noun + "-" + id, nil
}

// Noun returns the noun segment of a ref, or "" for a ref without one.
// The random segment never contains a hyphen, so the last hyphen is the
// separator even for nouns like "service_type".
func Noun(ref string) string {
	if i := strings.LastIndexByte(ref, '-'); i > 0 {
		return ref[:i]
	}
	return ""
}
