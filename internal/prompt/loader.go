package prompt

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"strings"
)

// Names of the embedded default prompts.
const (
	TicketAnalyzer   = "ticket_analyzer"
	ConfluenceSearch = "confluence_search"
)

//go:embed prompts/*.prompt
var defaults embed.FS

// Prompt is a parsed .prompt file.
type Prompt struct {
	Template
	Examples []Message
}

// Parse reads the .prompt format:
//
//	# system
//	...text...
//	# instructions
//	...text...
//	# few-shot
//	> user
//	...text...
//	> assistant
//	...text...
//
// Section and role markers must start at column zero. Text is trimmed of
// surrounding blank lines.
func Parse(r io.Reader) (*Prompt, error) {
	var (
		p       Prompt
		section string
		buf     []string
		role    string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		switch section {
		case "system":
			p.System = text
		case "instructions":
			p.Instructions = text
		case "few-shot":
			if role != "" {
				p.Examples = append(p.Examples, Message{Role: role, Content: text})
			}
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if name, ok := strings.CutPrefix(line, "# "); ok && isSection(strings.TrimSpace(name)) {
			flush()
			section = strings.TrimSpace(name)
			role = ""
			continue
		}
		if section == "few-shot" {
			if marker, ok := strings.CutPrefix(line, "> "); ok && isRole(strings.TrimSpace(marker)) {
				flush()
				role = strings.TrimSpace(marker)
				continue
			}
			if role == "" && strings.TrimSpace(line) != "" {
				return nil, fmt.Errorf("line %d: text before first role marker in few-shot section", lineNo)
			}
		}
		if section == "" {
			if strings.TrimSpace(line) != "" {
				return nil, fmt.Errorf("line %d: text outside of a section", lineNo)
			}
			continue
		}
		buf = append(buf, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading prompt: %w", err)
	}
	flush()

	if p.System == "" {
		return nil, fmt.Errorf("prompt has no system section")
	}
	if p.Instructions == "" {
		return nil, fmt.Errorf("prompt has no instructions section")
	}
	for i, ex := range p.Examples {
		if err := validateExample(ex); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
	}
	return &p, nil
}

// Load parses the .prompt file at path.
func Load(path string) (*Prompt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening prompt: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Resolve loads path when set, otherwise the embedded prompt called name.
func Resolve(name, path string) (*Prompt, error) {
	if path != "" {
		return Load(path)
	}
	f, err := defaults.Open("prompts/" + name + ".prompt")
	if err != nil {
		return nil, fmt.Errorf("no embedded prompt %q: %w", name, err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("embedded prompt %s: %w", name, err)
	}
	return p, nil
}

func isSection(name string) bool {
	return name == "system" || name == "instructions" || name == "few-shot"
}

func isRole(name string) bool {
	return name == RoleUser || name == RoleAssistant || name == RoleSystem
}
