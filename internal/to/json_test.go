package to_test

import (
	"bytes"
	"testing"

	"github.com/foyerspace/foyer/internal/to"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "nil slice renders as empty array",
			in:   []string(nil),
			want: "[]",
		},
		{
			name: "nil map renders as empty object",
			in:   map[string]string(nil),
			want: "{}",
		},
		{
			name: "nil slice under a key renders as empty array",
			in:   map[string]any{"friends": []string(nil)},
			want: "{\n  \"friends\": []\n}",
		},
		{
			name: "html passes through unescaped",
			in:   map[string]any{"content": "<b>hi</b>"},
			want: "{\n  \"content\": \"<b>hi</b>\"\n}",
		},
		{
			name: "fields indent two spaces",
			in: struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}{ID: "https://hub.example.com/u/alice", Name: "Alice"},
			want: "{\n  \"id\": \"https://hub.example.com/u/alice\",\n  \"name\": \"Alice\"\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			var out bytes.Buffer
			require.NoError(to.JSON(&out, tt.in))
			require.Equal(tt.want, out.String())
		})
	}
}
