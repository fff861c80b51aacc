package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDynamicJSON(t *testing.T) {
	t.Run("struct", func(t *testing.T) {
		in := struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}{Name: "find_available_buses", Count: 3}

		out, err := ToDynamicJSON(in)
		require.NoError(t, err)
		assert.Equal(t, "find_available_buses", out["name"])
		assert.Equal(t, float64(3), out["count"])
	})

	t.Run("unmarshalable value", func(t *testing.T) {
		_, err := ToDynamicJSON(func() {})
		require.Error(t, err)
	})

	t.Run("non-object json", func(t *testing.T) {
		_, err := ToDynamicJSON([]string{"a"})
		require.Error(t, err)
	})
}
