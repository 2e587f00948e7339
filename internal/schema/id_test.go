package schema

import (
	"strings"
	"testing"
)

// TestCheckID verifies identifier validation rules.
func TestCheckID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "r1", false},
		{"slug with dashes", "pasta-carbonara", false},
		{"uuid", "9b2f4e7a-53d1-4e0c-9ad1-45c6c2f5c07b", false},
		{"dots and underscores", "a.b_c", false},
		{"empty", "", true},
		{"contains separator", "a--b", true},
		{"leading dash", "-abc", true},
		{"trailing dash", "abc-", true},
		{"single dash", "-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckID(tt.id)
			if tt.wantErr && err == nil {
				t.Errorf("CheckID(%q) = nil, want error", tt.id)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckID(%q) = %v, want nil", tt.id, err)
			}
		})
	}
}

// TestEncodeDecodeRoundTrip verifies that DecodeID inverts EncodeID for a
// range of keys, including ones full of filesystem-hostile bytes.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	ids := []string{
		"r1",
		"pasta-carbonara",
		"Grandma's Pie",
		"a/b\\c",
		"100% rye",
		"crème brûlée",
		"tab\there",
		"..",
		"mixed%25already",
	}

	for _, id := range ids {
		encoded := EncodeID(id)
		if strings.ContainsAny(encoded, "/\\ ") {
			t.Errorf("EncodeID(%q) = %q still contains unsafe characters", id, encoded)
		}
		decoded, err := DecodeID(encoded)
		if err != nil {
			t.Fatalf("DecodeID(%q) failed: %v", encoded, err)
		}
		if decoded != id {
			t.Errorf("round trip %q -> %q -> %q", id, encoded, decoded)
		}
	}
}

// TestEncodeIDInjective verifies that keys which could collide under naive
// sanitization stay distinct.
func TestEncodeIDInjective(t *testing.T) {
	pairs := [][2]string{
		{"a b", "a_b"},
		{"a%20b", "a b"},
		{"a/b", "a_b"},
	}

	for _, p := range pairs {
		if EncodeID(p[0]) == EncodeID(p[1]) {
			t.Errorf("EncodeID(%q) == EncodeID(%q) == %q", p[0], p[1], EncodeID(p[0]))
		}
	}
}

// TestDecodeIDMalformed verifies that broken escapes are rejected.
func TestDecodeIDMalformed(t *testing.T) {
	stems := []string{"%", "%2", "%ZZ", "abc%", "a b"}

	for _, stem := range stems {
		if _, err := DecodeID(stem); err == nil {
			t.Errorf("DecodeID(%q) = nil error, want failure", stem)
		}
	}
}

// TestJoinStemSplitStem verifies the composite-key filename round trip.
func TestJoinStemSplitStem(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"r1", "i-flour"},
		{"pasta-carbonara", "i-egg"},
		{"Grandma's Pie", "butter & sugar"},
	}

	for _, tt := range tests {
		stem := JoinStem(tt.a, tt.b)
		a, b, err := SplitStem(stem)
		if err != nil {
			t.Fatalf("SplitStem(%q) failed: %v", stem, err)
		}
		if a != tt.a || b != tt.b {
			t.Errorf("SplitStem(%q) = (%q, %q), want (%q, %q)", stem, a, b, tt.a, tt.b)
		}
	}
}

// TestSplitStemAmbiguous verifies that stems without exactly one separator
// are rejected.
func TestSplitStemAmbiguous(t *testing.T) {
	stems := []string{"nodash", "a--b--c", ""}

	for _, stem := range stems {
		if _, _, err := SplitStem(stem); err == nil {
			t.Errorf("SplitStem(%q) = nil error, want failure", stem)
		}
	}
}
