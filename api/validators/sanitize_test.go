package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc  ", 0))
	assert.Equal(t, "ab", SanitizeString("abcdef", 2))
	assert.Equal(t, "ñá", SanitizeString("ñáé", 2))
}

func TestSanitizeOptional(t *testing.T) {
	assert.Nil(t, SanitizeOptional(nil, 10))

	blank := "   "
	assert.Nil(t, SanitizeOptional(&blank, 10))

	notes := " checked on site "
	out := SanitizeOptional(&notes, 7)
	if assert.NotNil(t, out) {
		assert.Equal(t, "checked", *out)
	}
}
