// Package pii normalizes and one-way-hashes personal identifiers before they
// leave the process. Hashing is idempotent: values that already look like a
// SHA-256 hex digest are passed through untouched.
package pii

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/okian/convrelay/internal/domain/model"
)

const digestHexLen = 64

// phone characters removed before hashing; formatting only, never digits.
const phoneStripChars = " -()+"

// NormalizeAndHash canonicalizes value for the given identifier kind and
// returns its lowercase hex SHA-256 digest. The shape of the input is
// preserved: lists are hashed element-wise, maps value-wise. Nil and empty
// string values are returned unchanged, as are already-hashed digests.
// Pure function; it never fails.
func NormalizeAndHash(kind string, value any) any {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = NormalizeAndHash(kind, elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = NormalizeAndHash(kind, elem)
		}
		return out
	}

	s := toString(value)
	if s == "" {
		return value
	}
	if IsHashed(s) {
		return s
	}

	return hashString(Normalize(kind, s))
}

// Normalize applies the per-kind canonical form without hashing:
// trim and lowercase always; phone numbers lose their formatting characters;
// gmail addresses lose the dots in their local part.
func Normalize(kind, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))

	switch kind {
	case model.KindHashedPhone:
		for _, c := range phoneStripChars {
			v = strings.ReplaceAll(v, string(c), "")
		}
	case model.KindHashedEmail:
		if local, domain, ok := strings.Cut(v, "@"); ok {
			if domain == "gmail.com" || domain == "googlemail.com" {
				v = strings.ReplaceAll(local, ".", "") + "@" + domain
			}
		}
	}

	return v
}

// IsHashed reports whether s has the exact form of a hex SHA-256 digest.
func IsHashed(s string) bool {
	if len(s) != digestHexLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// toString renders scalar JSON values the way they arrived on the wire.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return fmt.Sprintf("%v", v)
	}
}
