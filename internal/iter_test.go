package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	a := maps.All(map[string]int{"a": 1})
	b := maps.All(map[string]int{"b": 2, "c": 3})

	all := maps.Collect(IterSeq2Concat(a, b))
	assert.Equal(map[string]int{"a": 1, "b": 2, "c": 3}, all)

	var keys []string
	for key := range IterSeq2Concat(a, b) {
		keys = append(keys, key)
		break
	}
	assert.Equal([]string{"a"}, keys)

	assert.Empty(maps.Collect(IterSeq2Concat[string, int]()))
}
