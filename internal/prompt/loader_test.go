package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePrompt = `# system
You write docs.

# instructions
Line one.
Line two with {placeholder}.

# few-shot
> user
Key: A-1
## Instructions
nested heading stays

> assistant
{"ok": true}
`

func TestParse(t *testing.T) {
	p, err := Parse(strings.NewReader(samplePrompt))
	require.NoError(t, err)

	assert.Equal(t, "You write docs.", p.System)
	assert.Equal(t, "Line one.\nLine two with {placeholder}.", p.Instructions)
	want := []Message{
		{Role: RoleUser, Content: "Key: A-1\n## Instructions\nnested heading stays"},
		{Role: RoleAssistant, Content: `{"ok": true}`},
	}
	if diff := cmp.Diff(want, p.Examples); diff != "" {
		t.Errorf("examples mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no system", input: "# instructions\ndo it\n", want: "no system section"},
		{name: "no instructions", input: "# system\nyou\n", want: "no instructions section"},
		{name: "stray text", input: "hello\n# system\nyou\n", want: "outside of a section"},
		{name: "text before role", input: "# system\ns\n# instructions\ni\n# few-shot\norphan\n", want: "before first role marker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_EmptyExample(t *testing.T) {
	_, err := Parse(strings.NewReader("# system\ns\n# instructions\ni\n# few-shot\n> user\n\n> assistant\nok\n"))
	assert.ErrorIs(t, err, ErrInvalidExample)
}

func TestParse_SystemExample(t *testing.T) {
	_, err := Parse(strings.NewReader("# system\ns\n# instructions\ni\n# few-shot\n> system\nextra\n> user\nq\n"))
	assert.ErrorIs(t, err, ErrInvalidExample)
}

func TestResolve_Embedded(t *testing.T) {
	for _, name := range []string{TicketAnalyzer, ConfluenceSearch} {
		t.Run(name, func(t *testing.T) {
			p, err := Resolve(name, "")
			require.NoError(t, err)
			assert.NotEmpty(t, p.System)
			assert.NotEmpty(t, p.Instructions)
			require.NotEmpty(t, p.Examples)
			assert.Zero(t, len(p.Examples)%2, "examples come in user/assistant pairs")
			for i, ex := range p.Examples {
				wantRole := RoleUser
				if i%2 == 1 {
					wantRole = RoleAssistant
				}
				assert.Equal(t, wantRole, ex.Role)
			}
		})
	}
}

func TestResolve_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.prompt")
	require.NoError(t, os.WriteFile(path, []byte(samplePrompt), 0o644))

	p, err := Resolve(TicketAnalyzer, path)
	require.NoError(t, err)
	assert.Equal(t, "You write docs.", p.System)
}

func TestResolve_Unknown(t *testing.T) {
	_, err := Resolve("nope", "")
	assert.Error(t, err)
}
