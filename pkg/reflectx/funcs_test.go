package reflectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func namedFunc() {}

func TestIsFunction(t *testing.T) {
	assert.True(t, IsFunction(namedFunc))
	assert.True(t, IsFunction(func() {}))
	assert.False(t, IsFunction(nil))
	assert.False(t, IsFunction("string"))
	assert.False(t, IsFunction(42))
}

func TestFunctionName(t *testing.T) {
	t.Run("named function", func(t *testing.T) {
		assert.Equal(t, "namedFunc", FunctionName(namedFunc))
	})

	t.Run("method value strips the -fm suffix", func(t *testing.T) {
		var x withMethod
		assert.Equal(t, "Do", FunctionName(x.Do))
	})

	t.Run("non-function", func(t *testing.T) {
		assert.Equal(t, "", FunctionName("nope"))
	})
}

type withMethod struct{}

func (withMethod) Do() {}
