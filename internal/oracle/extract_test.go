package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "bare object",
			text: `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "prose around object",
			text: `Sure! Here is the inject you asked for: {"a": 1} — let me know.`,
			want: `{"a": 1}`,
		},
		{
			name: "markdown fence",
			text: "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "nested objects",
			text: `prefix {"a": {"b": {"c": 2}}} suffix`,
			want: `{"a": {"b": {"c": 2}}}`,
		},
		{
			name: "braces inside strings ignored",
			text: `{"content": "weird {unbalanced text", "n": 1}`,
			want: `{"content": "weird {unbalanced text", "n": 1}`,
		},
		{
			name: "escaped quotes inside strings",
			text: `{"content": "she said \"{hello}\"", "n": 2}`,
			want: `{"content": "she said \"{hello}\"", "n": 2}`,
		},
		{
			name: "first of two objects wins",
			text: `{"first": true} {"second": true}`,
			want: `{"first": true}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, text := range []string{"", "no json here", `{"never": "closed"`} {
		_, err := ExtractJSON(text)
		assert.ErrorIs(t, err, ErrNoJSON, "%q", text)
	}
}
