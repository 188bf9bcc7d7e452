package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidGroupID(t *testing.T) {
	assert.True(t, ValidGroupID("120363000000@g.us"))
	assert.True(t, ValidGroupID("237600000000-1600000000@g.us"))
	assert.False(t, ValidGroupID("237600000000@s.whatsapp.net"))
	assert.False(t, ValidGroupID(""))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+237600000000"))
	assert.True(t, ValidPhone("237600000000"))
	assert.False(t, ValidPhone("12ab"))
}

func TestSanitizeAndTruncate(t *testing.T) {
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
	assert.Equal(t, "ab", SanitizeString("a\xffb"))
	assert.Equal(t, "héll", TruncateString("héllo", 4))
	assert.True(t, ValidateLength("héllo", 1, 5))
}
