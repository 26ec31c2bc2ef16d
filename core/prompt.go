package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/cicada/core/env"
)

// DefaultPrompt is used when the configured template is blank.
const DefaultPrompt = `\u@cicada: \w\$ `

// Prompt renders the text shown before each line.
type Prompt struct {
	// Template may contain \u (user), \h (host), \w (directory) and \$.
	Template string
	// Color shows the prompt green after success and red after failure.
	Color bool

	ok, failed *color.Color
}

// NewPrompt creates a prompt from a template.
func NewPrompt(template string, colored bool) *Prompt {
	p := &Prompt{
		Template: template,
		Color:    colored,
		ok:       color.New(color.FgGreen),
		failed:   color.New(color.FgRed),
	}
	// The prompt only goes to terminals, even if the process output doesn't.
	p.ok.EnableColor()
	p.failed.EnableColor()
	return p
}

// Render builds the prompt for the context's current state.
func (p *Prompt) Render(ctx *Context) string {
	prompt := p.Template
	if prompt == "" {
		prompt = DefaultPrompt
	}

	host, _ := os.Hostname()
	prompt = strings.ReplaceAll(prompt, `\u`, ctx.Env.Getenv(env.User))
	prompt = strings.ReplaceAll(prompt, `\h`, host)
	prompt = strings.ReplaceAll(prompt, `\w`, displayDir(ctx.Dir(), ctx.Home()))

	if os.Geteuid() == 0 {
		prompt = strings.ReplaceAll(prompt, `\$`, "#")
	} else {
		prompt = strings.ReplaceAll(prompt, `\$`, "$")
	}

	if !p.Color {
		return prompt
	}
	if ctx.LastStatus() == 0 {
		return p.ok.Sprint(prompt)
	}
	return p.failed.Sprint(prompt)
}

// displayDir shortens dir to ~ for home and its base name otherwise.
func displayDir(dir, home string) string {
	switch {
	case home != "" && filepath.Clean(dir) == filepath.Clean(home):
		return "~"
	case dir == "/":
		return "/"
	default:
		return filepath.Base(dir)
	}
}
