package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 after two words, got %d", ids[3])
	}
	if attn[0] != 1 || attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask: %v", attn)
	}
	for _, id := range ids[1:3] {
		if id < 1000 || id >= 30000 {
			t.Errorf("token id %d out of range", id)
		}
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, _, _ := tok.Tokenize("a b c d e f g h i j k l", 4)
	if len(ids) != 4 {
		t.Fatalf("len(ids)=%d", len(ids))
	}
	if ids[3] != 102 {
		t.Errorf("last position should be SEP, got %d", ids[3])
	}
}

func TestHashString(t *testing.T) {
	tests := []struct {
		in   string
		want int32
	}{
		{"", 0},
		{"a", 97},
		{"ab", 97*31 + 98},
		{"abc", (97*31+98)*31 + 99},
	}
	for _, tt := range tests {
		if got := HashString(tt.in); got != tt.want {
			t.Errorf("HashString(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if HashString("the quick brown fox jumps over the lazy dog") != HashString("the quick brown fox jumps over the lazy dog") {
		t.Error("hash should be deterministic")
	}
}

func TestHashString_WrapsAt32Bits(t *testing.T) {
	// "fallback" overflows int32 several times; the value must match 32-bit wrapping arithmetic.
	var want int32
	for _, c := range "fallback" {
		want = want*31 + int32(c)
	}
	if got := HashString("fallback"); got != want {
		t.Errorf("HashString(fallback) = %d, want %d", got, want)
	}
}
