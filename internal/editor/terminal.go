// Package editor implements the interactive command-loop editors that
// populate entities and parameter trees field by field, the candidate
// selection prompts for reference fields, and the pre-commit validation
// gate for unset values.
//
// Editors run strictly nested: a set against a reference or component
// field suspends the current editor until its child editor finishes, and
// a cancelled child never cancels the parent. Commit is not the editor's
// job; Run only reports whether the user finished or bailed.
package editor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ErrInterrupt is returned by a Terminal when the user cancels input
// (interrupt or closed input). It terminates the innermost editor only.
var ErrInterrupt = errors.New("interrupted")

// Terminal is the I/O surface editors talk through. The stdio
// implementation lives here; the wire package implements it over a
// websocket.
type Terminal interface {
	// Prompt shows text and returns one line of user input.
	Prompt(text string) (string, error)
	// Say prints an informational line.
	Say(format string, args ...any)
	// Warn prints a warning line.
	Warn(format string, args ...any)
	// Err prints an error line.
	Err(format string, args ...any)
	// Table renders tabular data.
	Table(headers []string, rows [][]string)
}

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	headerStyle = lipgloss.NewStyle().Bold(true)
)

// Stdio is a Terminal over an input reader and output writer.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio creates a terminal reading commands from in and rendering to out.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

// Prompt shows text and returns one line of user input. A closed input
// stream maps to ErrInterrupt so editors treat it as a cancel.
func (s *Stdio) Prompt(text string) (string, error) {
	fmt.Fprint(s.out, promptStyle.Render(text)+" ")
	line, err := s.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInterrupt
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Say prints an informational line.
func (s *Stdio) Say(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

// Warn prints a warning line.
func (s *Stdio) Warn(format string, args ...any) {
	fmt.Fprintln(s.out, warnStyle.Render("[!]  "+fmt.Sprintf(format, args...)))
}

// Err prints an error line.
func (s *Stdio) Err(format string, args ...any) {
	fmt.Fprintln(s.out, errStyle.Render("[E]  "+fmt.Sprintf(format, args...)))
}

// Table renders tabular data.
func (s *Stdio) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...)
	for _, r := range rows {
		t.Row(r...)
	}
	fmt.Fprintln(s.out, t.Render())
}
