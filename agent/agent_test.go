package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridewell/waybill/tool"
	"github.com/ridewell/waybill/types"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a := New(Name("booking-agent"))
		assert.Equal(t, "booking-agent", a.Name())
		require.NotNil(t, a.Model())
		assert.Equal(t, "gpt-4o-mini", a.Model().Name())
		assert.True(t, a.ParallelToolCalls())
		assert.Empty(t, a.Tools())
	})

	t.Run("options", func(t *testing.T) {
		td := tool.Must(func(q string) string { return q }, tool.Name("echo"))
		a := New(
			Name("booking-agent"),
			Instructions("You book bus tickets."),
			ParallelToolCalls(false),
			Tools(td),
		)

		assert.False(t, a.ParallelToolCalls())
		require.Len(t, a.Tools(), 1)
		assert.Equal(t, "echo", a.Tools()[0].Name)
	})

	t.Run("tools accumulate", func(t *testing.T) {
		first := tool.Must(func() string { return "" }, tool.Name("first"))
		second := tool.Must(func() string { return "" }, tool.Name("second"))
		third := tool.Must(func() string { return "" }, tool.Name("third"))

		a := New(Name("x"), Tools(first, second), Tools(third))
		require.Len(t, a.Tools(), 3)
		assert.Equal(t, "third", a.Tools()[2].Name)
	})
}

func TestRenderInstructions(t *testing.T) {
	t.Run("plain instructions pass through", func(t *testing.T) {
		a := New(Name("x"), Instructions("You are a helpful assistant for booking bus tickets."))
		out, err := a.RenderInstructions(nil)
		require.NoError(t, err)
		assert.Equal(t, "You are a helpful assistant for booking bus tickets.", out)
	})

	t.Run("templates render context vars", func(t *testing.T) {
		a := New(Name("x"), Instructions("Book tickets for {{.passenger}}."))
		out, err := a.RenderInstructions(types.ContextVars{"passenger": "Anand Kumar"})
		require.NoError(t, err)
		assert.Equal(t, "Book tickets for Anand Kumar.", out)
	})

	t.Run("missing keys error", func(t *testing.T) {
		a := New(Name("x"), Instructions("Book tickets for {{.passenger}}."))
		_, err := a.RenderInstructions(types.ContextVars{})
		require.Error(t, err)
	})
}
