package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	e, err := Compile(`item.score > 0.5 && "movie" in item.types`)
	require.NoError(t, err)
	assert.Equal(t, `item.score > 0.5 && "movie" in item.types`, e.String())

	ok, err := e.Evaluate(map[string]interface{}{
		"item":   map[string]interface{}{"score": 0.9, "types": []string{"movie"}},
		"user":   map[string]interface{}{},
		"params": map[string]interface{}{},
		"now":    int64(0),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(`item.score >`)
	assert.Error(t, err)

	_, err = Compile(`now + 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must return bool")
}

func TestEvaluate_NonBool(t *testing.T) {
	e, err := Compile(`item.id`)
	require.NoError(t, err)

	_, err = e.Evaluate(map[string]interface{}{
		"item":   map[string]interface{}{"id": "i1"},
		"user":   map[string]interface{}{},
		"params": map[string]interface{}{},
		"now":    int64(0),
	})
	assert.Error(t, err)
}
