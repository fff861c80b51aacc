package tool

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridewell/waybill/types"
)

func lookupStub(origin, destination, travelDate string) string { return "" }

func confirmStub(busID, name, contact string, seats []string) string { return "" }

func contextualStub(cv types.ContextVars, query string) string { return "" }

func TestNew(t *testing.T) {
	t.Run("valid function", func(t *testing.T) {
		def, err := New(lookupStub, Name("find_available_buses"), Description("finds buses"))
		require.NoError(t, err)
		assert.Equal(t, "find_available_buses", def.Name)
		assert.Equal(t, "finds buses", def.Description)
		assert.Equal(t, reflect.ValueOf(lookupStub).Pointer(), reflect.ValueOf(def.Function).Pointer())
	})

	t.Run("not a function", func(t *testing.T) {
		_, err := New("not a function")
		require.Error(t, err)
	})

	t.Run("name defaults to the function name", func(t *testing.T) {
		def, err := New(lookupStub)
		require.NoError(t, err)
		assert.Contains(t, def.Name, "lookupStub")
	})
}

func TestMust(t *testing.T) {
	assert.NotPanics(t, func() {
		Must(lookupStub, Name("find_available_buses"))
	})
	assert.Panics(t, func() {
		Must(42)
	})
}

func TestParameters(t *testing.T) {
	def := Must(lookupStub, Parameters("origin", "destination", "travel_date"))
	assert.Equal(t, map[string]string{
		"param0": "origin",
		"param1": "destination",
		"param2": "travel_date",
	}, def.Parameters)
}

func TestToNameAndSchema(t *testing.T) {
	t.Run("string parameters", func(t *testing.T) {
		def := Must(lookupStub,
			Name("find_available_buses"),
			Parameters("origin", "destination", "travel_date"),
		)

		name, schema := def.ToNameAndSchema()
		assert.Equal(t, "find_available_buses", name)
		assert.Equal(t, "object", schema.Type)
		assert.Equal(t, []string{"origin", "destination", "travel_date"}, schema.Required)

		prop, ok := schema.Properties.Get("origin")
		require.True(t, ok)
		assert.Equal(t, "string", prop.Type)
	})

	t.Run("slice parameter", func(t *testing.T) {
		def := Must(confirmStub,
			Name("confirm_bus_booking"),
			Parameters("bus_id", "passenger_name", "passenger_contact", "seats_booked"),
		)

		_, schema := def.ToNameAndSchema()
		assert.Equal(t, []string{"bus_id", "passenger_name", "passenger_contact", "seats_booked"}, schema.Required)

		prop, ok := schema.Properties.Get("seats_booked")
		require.True(t, ok)
		assert.Equal(t, "array", prop.Type)
	})

	t.Run("context vars are not advertised", func(t *testing.T) {
		def := Must(contextualStub, Name("contextual"), Parameters("query"))

		_, schema := def.ToNameAndSchema()
		assert.Equal(t, []string{"query"}, schema.Required)
		_, hasQuery := schema.Properties.Get("query")
		assert.True(t, hasQuery)
		assert.Equal(t, 1, schema.Properties.Len())
	})

	t.Run("unnamed parameters keep positional names", func(t *testing.T) {
		def := Must(lookupStub, Name("lookup"))

		_, schema := def.ToNameAndSchema()
		assert.Equal(t, []string{"param0", "param1", "param2"}, schema.Required)
	})
}
