// Package prompt reads REPL lines and answers to interactive questions
// from a single input stream.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the user for input.
type Prompter interface {
	// Prompt shows label and returns the trimmed answer.
	Prompt(label string) (string, error)

	// PromptSecret is Prompt without echo when the input is a terminal.
	PromptSecret(label string) (string, error)
}

// Terminal is a Prompter over an input stream. It is also the REPL's line
// source, so questions and commands never race for buffered input.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewTerminal creates a Terminal reading from in and writing labels to out.
// Echo is suppressed for secrets only when in is a terminal.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t.fd = int(f.Fd())
		t.tty = true
	}
	return t
}

// ReadLine returns the next line without its line ending.
// The final unterminated line is returned before io.EOF.
func (t *Terminal) ReadLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt implements Prompter.
func (t *Terminal) Prompt(label string) (string, error) {
	fmt.Fprint(t.out, label)
	line, err := t.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptSecret implements Prompter. Secrets are not trimmed.
func (t *Terminal) PromptSecret(label string) (string, error) {
	if !t.tty {
		fmt.Fprint(t.out, label)
		return t.ReadLine()
	}
	fmt.Fprint(t.out, label)
	b, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// Confirm asks a yes/no question; anything but y or yes is no.
func Confirm(p Prompter, question string) (bool, error) {
	answer, err := p.Prompt(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
