package shell

import (
	"strings"
)

// Quote returns s in a form that parses back to exactly s.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuote) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("_@%+=:,./-", r):
		return false
	default:
		return true
	}
}

// Render returns the canonical text form of the command.
func (c *Command) Render() string {
	var parts []string
	for _, arg := range c.Argv() {
		parts = append(parts, Quote(arg))
	}
	if c.Stdin != "" {
		parts = append(parts, "<", Quote(c.Stdin))
	}
	if c.Stdout != "" {
		op := ">"
		if c.Append {
			op = ">>"
		}
		parts = append(parts, op, Quote(c.Stdout))
	}
	return strings.Join(parts, " ")
}

// Render returns the canonical text form of the pipeline. Parsing the result
// produces the same commands and background flag.
func (p *Pipeline) Render() string {
	stages := make([]string, len(p.Commands))
	for i := range p.Commands {
		stages[i] = p.Commands[i].Render()
	}

	out := strings.Join(stages, " | ")
	if p.Background {
		out += " &"
	}
	return out
}

// Render returns the canonical text form of the list.
func (l *List) Render() string {
	var sb strings.Builder
	for i, item := range l.Items {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(item.Pipeline.Render())
		if item.Op != OpNone {
			sb.WriteString(" ")
			sb.WriteString(string(item.Op))
		}
	}
	return sb.String()
}
