package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/pulp-platform/bender/internal/diag"
	"github.com/pulp-platform/bender/internal/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// Interactive reports whether conflict arbitration can ask the user:
// both stdin and stderr must go to a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// NewArbiter returns the terminal arbiter when the session is interactive,
// and the failing default otherwise.
func NewArbiter() resolver.Arbiter {
	if Interactive() {
		return &TerminalArbiter{}
	}
	return resolver.FailArbiter{}
}

// TerminalArbiter presents version conflicts on the terminal and lets the
// user pick a candidate. Decisions are cached per package so a package is
// asked about at most once per resolution.
type TerminalArbiter struct {
	decisions map[string]resolver.Candidate
}

// Choose implements resolver.Arbiter.
func (a *TerminalArbiter) Choose(pkg string, reqs []diag.Requirement, candidates []resolver.Candidate) (resolver.Candidate, error) {
	if c, ok := a.decisions[pkg]; ok {
		return c, nil
	}
	if len(candidates) == 0 {
		return resolver.Candidate{}, &diag.VersionConflictError{Package: pkg, Requirements: reqs}
	}

	fmt.Fprintf(os.Stderr, "%s\n", titleStyle.Render(
		fmt.Sprintf("Dependency requirements conflict with each other on dependency %q.", pkg)))
	rows := make([][]any, 0, len(reqs))
	for _, r := range reqs {
		rows = append(rows, []any{"- package " + r.Parent, "requires " + r.Constraint, "at " + r.Source})
	}
	fmt.Fprint(os.Stderr, RenderRows(rows))
	fmt.Fprintf(os.Stderr, "\nTo resolve this conflict manually, select a revision for %q among:\n", pkg)
	rows = rows[:0]
	for i, c := range candidates {
		rows = append(rows, []any{fmt.Sprintf("%d)", i), c.Description})
	}
	fmt.Fprint(os.Stderr, RenderRows(rows))
	fmt.Fprintln(os.Stderr, dimStyle.Render("Press enter without input to abort."))

	idx, aborted, err := promptIndex(len(candidates))
	if err != nil {
		return resolver.Candidate{}, err
	}
	if aborted {
		return resolver.Candidate{}, &diag.VersionConflictError{Package: pkg, Requirements: reqs}
	}
	if a.decisions == nil {
		a.decisions = map[string]resolver.Candidate{}
	}
	a.decisions[pkg] = candidates[idx]
	return candidates[idx], nil
}

// --- promptModel: bubbletea model for numeric candidate selection ---

type promptModel struct {
	textInput textinput.Model
	max       int
	errMsg    string
	done      bool
	aborted   bool
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			val := strings.TrimSpace(m.textInput.Value())
			if val == "" {
				m.aborted = true
				return m, tea.Quit
			}
			if err := validateIndex(val, m.max); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
	}
	m.errMsg = ""
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Enter a number:") + " " + m.textInput.View() + "\n")
	if m.errMsg != "" {
		b.WriteString(errStyle.Render(m.errMsg) + "\n")
	}
	return b.String()
}

func validateIndex(val string, max int) error {
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid input")
	}
	if n < 0 || n >= max {
		return fmt.Errorf("choice out of bounds")
	}
	return nil
}

func promptIndex(max int) (int, bool, error) {
	ti := textinput.New()
	ti.Placeholder = "0"
	ti.Focus()

	m := promptModel{textInput: ti, max: max}
	result, err := tea.NewProgram(m, tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return 0, false, err
	}
	rm := result.(promptModel)
	if rm.aborted {
		return 0, true, nil
	}
	n, _ := strconv.Atoi(strings.TrimSpace(rm.textInput.Value()))
	return n, false, nil
}
