package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dict any
		key  any
		want any
	}{
		{name: "string map", dict: map[string]string{"a": "x"}, key: "a", want: "x"},
		{name: "any map", dict: map[string]any{"n": 3}, key: "n", want: 3},
		{name: "numeric key stringified", dict: map[string]any{"7": "seven"}, key: 7, want: "seven"},
		{name: "json string", dict: `{"a": "x"}`, key: "a", want: "x"},
		{name: "single quoted json", dict: `{'a': 'x'}`, key: "a", want: "x"},
		{name: "missing key", dict: map[string]string{"a": "x"}, key: "b", want: ""},
		{name: "nil", dict: nil, key: "a", want: ""},
		{name: "empty string", dict: "", key: "a", want: ""},
		{name: "garbage string", dict: "not json", key: "a", want: ""},
		{name: "unsupported type", dict: 42, key: "a", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, dictGet(tc.dict, tc.key))
		})
	}
}

func TestJSONEncode(t *testing.T) {
	t.Parallel()

	got, err := jsonEncode(map[string]any{"label": "설문", "html": "</script>"})
	require.NoError(t, err)

	assert.Contains(t, string(got), "설문", "non-ASCII kept verbatim")
	assert.NotContains(t, string(got), "</script>")
	assert.Contains(t, string(got), `\u003c/script\u003e`)

	_, err = jsonEncode(make(chan int))
	require.Error(t, err)
}
