package strlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "empty", raw: "", expected: nil},
		{name: "blank", raw: "  ", expected: nil},
		{name: "single", raw: "wss://relay.satnam.pub", expected: []string{"wss://relay.satnam.pub"}},
		{name: "trims parts", raw: " k1:9092 , k2:9092 ", expected: []string{"k1:9092", "k2:9092"}},
		{name: "drops empty parts", raw: "a,,b,", expected: []string{"a", "b"}},
		{name: "drops repeats keeping order", raw: "b,a,b,a", expected: []string{"b", "a"}},
		{name: "only separators", raw: ",,,", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Split(tt.raw, ","))
		})
	}
}

func TestDedupe(t *testing.T) {
	assert.Nil(t, Dedupe(nil))
	assert.Equal(t, []string{"foo", "bar"}, Dedupe([]string{"  foo ", "bar", "foo", "", "  "}))
	assert.Equal(t, []string{"Foo", "foo"}, Dedupe([]string{"Foo", "foo"}))
}
