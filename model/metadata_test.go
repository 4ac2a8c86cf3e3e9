package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValue(t *testing.T) {
	t.Run("Nil metadata stores an empty object", func(t *testing.T) {
		var m Metadata
		value, err := m.Value()

		require.NoError(t, err)
		assert.Equal(t, []byte("{}"), value)
	})

	t.Run("Metadata stores as JSON", func(t *testing.T) {
		value, err := Metadata{"status": "Open"}.Value()

		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"Open"}`, string(value.([]byte)))
	})
}

func TestMetadataScan(t *testing.T) {
	t.Run("Scan bytes", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan([]byte(`{"priority":"High"}`)))
		assert.Equal(t, "High", m["priority"])
	})

	t.Run("Scan string", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan(`{"priority":"Low"}`))
		assert.Equal(t, "Low", m["priority"])
	})

	t.Run("Scan nil gives empty metadata", func(t *testing.T) {
		var m Metadata
		require.NoError(t, m.Scan(nil))
		assert.NotNil(t, m)
		assert.Empty(t, m)
	})

	t.Run("Scan unsupported type fails", func(t *testing.T) {
		var m Metadata
		assert.Error(t, m.Scan(42))
	})
}

func TestMetadataCopy(t *testing.T) {
	original := Metadata{"a": "1"}
	c := original.Copy()
	c["b"] = "2"

	assert.Len(t, original, 1)
	assert.NotNil(t, Metadata(nil).Copy())
}
