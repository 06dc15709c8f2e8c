// Package replui implements the interactive kestrel REPL: one line in,
// one evaluated result out, styled with lipgloss and driven by
// charmbracelet/bubbletea + bubbles/textinput, in the shape of
// ardnew-aenv/cli/cmd/repl's own eval-prompt model with the AST-editing
// and fuzzy-completion machinery trimmed to what a script REPL needs.
package replui

import (
	"fmt"
	"regexp"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/kestrelang/kestrel/engine"
	"github.com/kestrelang/kestrel/scope"
)

const prompt = "kestrel> "

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*$`)

// builtinCandidates seeds tab-completion with keywords and the built-in
// math: namespace before any identifier has actually been typed.
var builtinCandidates = []string{
	"var", "let", "const", "if", "else", "for", "while", "do", "try",
	"catch", "finally", "switch", "case", "default", "new", "true",
	"false", "null", "math",
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run starts the REPL, evaluating each line against a single shared
// Context (so "var x = 1" in one line stays visible to the next).
func Run(eng *engine.Engine) error {
	m := newModel(eng)
	_, err := tea.NewProgram(m).Run()
	return err
}

type model struct {
	input      textinput.Model
	eng        *engine.Engine
	ctx        scope.Context
	history    []string
	historyIdx int
	quitting   bool
	candidates []string // identifiers seen so far, for tab-completion
}

func newModel(eng *engine.Engine) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(prompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 80

	return model{
		input:      ti,
		eng:        eng,
		ctx:        scope.NewMapContext(),
		candidates: append([]string(nil), builtinCandidates...),
	}
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.evalLine()
		case tea.KeyUp:
			m.recall(-1)
			return m, nil
		case tea.KeyDown:
			m.recall(1)
			return m, nil
		case tea.KeyTab:
			m.complete()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	return m.input.View() + "\n" + hintStyle.Render("Ctrl+C to exit")
}

func (m model) evalLine() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.SetValue("")
	if line == "" {
		return m, nil
	}
	m.history = append(m.history, line)
	m.historyIdx = len(m.history)
	m.learnIdentifiers(line)

	v, err := m.eng.Evaluate(line, m.ctx)
	if err != nil {
		return m, tea.Println(promptStyle.Render(prompt) + line + "\n" + errorStyle.Render(err.Error()))
	}
	return m, tea.Println(promptStyle.Render(prompt) + line + "\n" + resultStyle.Render(fmt.Sprint(v.String())))
}

var wordRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// learnIdentifiers records every identifier in line as a future
// tab-completion candidate, so names a user has already typed (variables,
// host properties) complete on later lines.
func (m *model) learnIdentifiers(line string) {
	seen := make(map[string]bool, len(m.candidates))
	for _, c := range m.candidates {
		seen[c] = true
	}
	for _, w := range wordRe.FindAllString(line, -1) {
		if !seen[w] {
			seen[w] = true
			m.candidates = append(m.candidates, w)
		}
	}
}

// complete replaces the identifier under the cursor with the best fuzzy
// match against candidates (sahilm/fuzzy, as ardnew-aenv/cli/cmd/repl's
// own completer uses), leaving the input unchanged when nothing matches.
func (m *model) complete() {
	val := m.input.Value()
	loc := identRe.FindStringIndex(val)
	if loc == nil {
		return
	}
	word := val[loc[0]:loc[1]]
	if word == "" {
		return
	}
	matches := fuzzy.Find(word, m.candidates)
	if len(matches) == 0 {
		return
	}
	completed := val[:loc[0]] + matches[0].Str + val[loc[1]:]
	m.input.SetValue(completed)
	m.input.CursorEnd()
}

func (m *model) recall(dir int) {
	if len(m.history) == 0 {
		return
	}
	m.historyIdx += dir
	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx >= len(m.history) {
		m.historyIdx = len(m.history)
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.historyIdx])
	m.input.CursorEnd()
}
