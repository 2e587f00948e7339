package schema

import (
	"fmt"
	"strings"
)

const joinSep = "--"

// CheckID validates a primary key for use as a record identifier.
//
// Identifiers must be non-empty and must survive the filename round trip:
// the encoding keeps "-" literal and join stems use "--" as the separator,
// so keys containing "--" or with a leading or trailing "-" are rejected.
func CheckID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier is empty")
	}
	if strings.Contains(id, joinSep) {
		return fmt.Errorf("identifier %q contains reserved separator %q", id, joinSep)
	}
	if strings.HasPrefix(id, "-") || strings.HasSuffix(id, "-") {
		return fmt.Errorf("identifier %q starts or ends with %q", id, "-")
	}
	return nil
}

// EncodeID maps a primary key to a filesystem-safe filename stem.
//
// Bytes in [A-Za-z0-9._-] pass through unchanged; every other byte
// (including "%" itself) is written as %XX with uppercase hex. The mapping
// is injective, so distinct keys never collide on disk, and DecodeID
// recovers the original key exactly.
func EncodeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if safeByte(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

// DecodeID is the inverse of EncodeID. It returns an error if the stem is
// empty, contains a malformed escape, or contains a byte the encoder would
// never emit.
func DecodeID(stem string) (string, error) {
	if stem == "" {
		return "", fmt.Errorf("empty filename stem")
	}
	var b strings.Builder
	b.Grow(len(stem))
	for i := 0; i < len(stem); i++ {
		c := stem[i]
		if c == '%' {
			if i+2 >= len(stem) {
				return "", fmt.Errorf("truncated escape in %q", stem)
			}
			hi, ok1 := unhex(stem[i+1])
			lo, ok2 := unhex(stem[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("malformed escape %q in %q", stem[i:i+3], stem)
			}
			b.WriteByte(hi<<4 | lo)
			i += 2
			continue
		}
		if !safeByte(c) {
			return "", fmt.Errorf("unexpected byte %q in %q", c, stem)
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

// JoinStem builds the filename stem for a composite-key record:
// {encoded a}--{encoded b}. Both keys must satisfy CheckID, which keeps
// the "--" separator unambiguous.
func JoinStem(a, b string) string {
	return EncodeID(a) + joinSep + EncodeID(b)
}

// SplitStem splits a composite stem back into its two decoded keys.
func SplitStem(stem string) (string, string, error) {
	parts := strings.Split(stem, joinSep)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("stem %q does not split into two keys", stem)
	}
	a, err := DecodeID(parts[0])
	if err != nil {
		return "", "", err
	}
	b, err := DecodeID(parts[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func safeByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '-':
		return true
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
