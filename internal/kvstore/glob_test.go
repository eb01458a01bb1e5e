package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*:abc", "org-1:abc", true},
		{"*:abc", "org-1:abcd", false},
		{"*:abc", "abc", false},
		{"*:abc", "a/b:abc", true},
		{"org-?:x", "org-1:x", true},
		{"org-?:x", "org-12:x", false},
		{"org-[12]:x", "org-2:x", true},
		{"org-[^12]:x", "org-2:x", false},
		{"org-[a-c]:x", "org-b:x", true},
		{`*:a\*b`, "o:a*b", true},
		{`*:a\*b`, "o:axxb", false},
		{"**", "", true},
		{"", "", true},
		{"", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchGlob(tt.pattern, tt.key))
		})
	}
}

func TestEscapeGlob(t *testing.T) {
	id := `weird*id?[x]\`
	escaped := EscapeGlob(id)

	assert.Equal(t, `weird\*id\?\[x\]\\`, escaped)
	assert.True(t, MatchGlob("*:"+escaped, "org:"+id))
	assert.False(t, MatchGlob("*:"+escaped, "org:weirdXid?[x]\\"))
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		glob string
		want string
	}{
		{"*:abc", "%:abc"},
		{"*:a_b", `%:a\_b`},
		{"*:100%", `%:100\%`},
		{`*:a\*b`, "%:a*b"},
		{"org-?:[ab]", "org-_:_"},
		{`*:back\\slash`, `%:back\\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.glob, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.glob))
		})
	}
}
