package ordered

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	m := map[string]int{"xs": 1, "ocx": 2, "": 3, "unitsml": 4}
	assert.Equal(t, []string{"", "ocx", "unitsml", "xs"}, Keys(m))
	assert.Empty(t, Keys(map[int]bool{}))
}

func TestKeysFunc(t *testing.T) {
	m := map[string]bool{"Panel": true, "plate": true, "Vessel": true}
	keys := KeysFunc(m, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	assert.Equal(t, []string{"Panel", "plate", "Vessel"}, keys)
}

func TestRange(t *testing.T) {
	var got []string
	Range(map[string]int{"b": 2, "a": 1, "c": 3}, func(k string, v int) {
		got = append(got, strings.Repeat(k, v))
	})
	assert.Equal(t, []string{"a", "bb", "ccc"}, got)
}
