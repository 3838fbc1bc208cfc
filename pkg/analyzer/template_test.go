package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVariableNames(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{"single", "Summarize: {{user_request}}", []string{"user_request"}},
		{"whitespace", "Elaborate: {{  A  }}", []string{"A"}},
		{"multiple", "{{A}} and {{B}} and {{A}}", []string{"A", "B"}},
		{"none", "no variables here", nil},
		{"underscore and digits", "{{task_1}}", []string{"task_1"}},
		{"rejects leading digit", "{{1abc}}", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractVariableNames(tt.template)
			var names []string
			for n := range got {
				names = append(names, n)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestRender(t *testing.T) {
	out := Render("Hello {{name}}, prev was {{prev_output}}", map[string]string{
		"name": "world",
	})
	assert.Equal(t, "Hello world, prev was ", out)
}

func TestRender_NoVariables(t *testing.T) {
	out := Render("plain text", map[string]string{"x": "y"})
	assert.Equal(t, "plain text", out)
}
