package dbtypes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDArrayScan(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	var arr UUIDArray
	require.NoError(t, arr.Scan(`{"`+a.String()+`", `+b.String()+`}`))
	assert.Equal(t, UUIDArray{a, b}, arr)

	require.NoError(t, arr.Scan([]byte("{}")))
	assert.Empty(t, arr)

	require.NoError(t, arr.Scan(nil))
	assert.NotNil(t, arr)

	assert.Error(t, arr.Scan("{not-a-uuid}"))
	assert.Error(t, arr.Scan(42))
}

func TestUUIDArrayValue(t *testing.T) {
	v, err := UUIDArray{}.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	id := uuid.MustParse("6f1c0c1e-8b0a-4c55-9d2e-6d0f7f1d2a10")
	v, err = UUIDArray{id}.Value()
	require.NoError(t, err)
	assert.Equal(t, "{6f1c0c1e-8b0a-4c55-9d2e-6d0f7f1d2a10}", v)
}

func TestUUIDArraySetOps(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	staff := UUIDArray{a}

	added := staff.With(b).With(b)
	assert.Equal(t, UUIDArray{a, b}, added)
	assert.True(t, added.Contains(b))
	assert.Equal(t, UUIDArray{a}, staff)

	removed := added.Without(a)
	assert.Equal(t, UUIDArray{b}, removed)
	assert.False(t, removed.Contains(a))
}
