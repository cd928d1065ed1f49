// File: internal/ui/prompt/prompt.go
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Defines the interface for prompting the user for input
type Prompter interface {
	// Asks the user for confirmation by requiring them to type a specific expected value
	Confirm(message string, expectedValue string) (bool, error)
}

// New returns an interactive prompter when in is a terminal, and a line-based one otherwise
func New(in io.Reader, out io.Writer) Prompter {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return NewInteractivePrompter(in, out)
	}
	return NewStandardPrompter(in, out)
}

// Provides a standard implementation of the Prompter interface using specified input/output streams
type StandardPrompter struct {
	reader io.Reader
	writer io.Writer
}

// Creates a new StandardPrompter with the given input and output streams
func NewStandardPrompter(in io.Reader, out io.Writer) *StandardPrompter {
	return &StandardPrompter{
		reader: in,
		writer: out,
	}
}

// Asks the user for confirmation by requiring them to type a specific expected value
func (p *StandardPrompter) Confirm(message string, expectedValue string) (bool, error) {
	if expectedValue == "" {
		return false, fmt.Errorf("expected confirmation value cannot be empty")
	}

	fmt.Fprintln(p.writer, message)
	fmt.Fprintf(p.writer, "To confirm, please type the name '%s': ", expectedValue)

	reader := bufio.NewReader(p.reader)
	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("error reading user input: %w", err)
	}

	cleanedInput := strings.TrimSpace(input)

	return cleanedInput == expectedValue, nil
}

// InteractivePrompter renders the confirmation as a terminal text input
type InteractivePrompter struct {
	reader io.Reader
	writer io.Writer
}

func NewInteractivePrompter(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{
		reader: in,
		writer: out,
	}
}

func (p *InteractivePrompter) Confirm(message string, expectedValue string) (bool, error) {
	if expectedValue == "" {
		return false, fmt.Errorf("expected confirmation value cannot be empty")
	}

	program := tea.NewProgram(newConfirmModel(message, expectedValue), tea.WithInput(p.reader), tea.WithOutput(p.writer))
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("error reading user input: %w", err)
	}
	return final.(confirmModel).confirmed(), nil
}

var (
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

type confirmModel struct {
	message  string
	expected string
	input    textinput.Model
	done     bool
	aborted  bool
}

func newConfirmModel(message, expected string) confirmModel {
	input := textinput.New()
	input.Placeholder = expected
	input.Prompt = "> "
	input.CharLimit = len(expected) + 64
	input.Focus()

	return confirmModel{
		message:  message,
		expected: expected,
		input:    input,
	}
}

func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	if m.done || m.aborted {
		return ""
	}
	return fmt.Sprintf("%s\nTo confirm, please type the name '%s':\n%s\n%s\n",
		warningStyle.Render(m.message),
		m.expected,
		m.input.View(),
		hintStyle.Render("enter to confirm, esc to cancel"),
	)
}

func (m confirmModel) confirmed() bool {
	return m.done && !m.aborted && strings.TrimSpace(m.input.Value()) == m.expected
}
