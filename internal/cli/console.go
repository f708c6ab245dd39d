// Package cli is the coordinator's terminal wizard.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"golang.org/x/term"

	"satnam/internal/nfc"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// Console prompts the coordinator. Lines come from a source shared with the
// keyboard-wedge card reader; secrets are read without echo when the input
// is a terminal.
type Console struct {
	in       *nfc.ReaderSource
	out      io.Writer
	fd       int
	terminal bool
	escapes  map[string]bool
}

// Escape is returned by Ask, Confirm and Choose when the answer is one of
// the registered escape commands.
type Escape struct{ Command string }

func (e Escape) Error() string { return "escape " + e.Command }

// NewConsole wraps in and out. fd is the terminal used for secret input;
// pass -1 when the input is not a terminal.
func NewConsole(in *nfc.ReaderSource, out io.Writer, fd int) *Console {
	return &Console{in: in, out: out, fd: fd, terminal: fd >= 0 && term.IsTerminal(fd)}
}

// Escapes registers answers that abort a prompt with Escape.
func (c *Console) Escapes(cmds ...string) {
	c.escapes = make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		c.escapes[cmd] = true
	}
}

// next reads one trimmed answer.
func (c *Console) next(ctx context.Context) (string, error) {
	line, err := c.in.NextLine(ctx)
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if c.escapes[line] {
		return "", Escape{Command: line}
	}
	return line, nil
}

// Lines exposes the shared line source for the card reader.
func (c *Console) Lines() *nfc.ReaderSource { return c.in }

// Banner prints text in large letters, coloured only on a terminal.
func (c *Console) Banner(text string) {
	if c.terminal {
		fmt.Fprintln(c.out, figure.NewColorFigure(text, "", "yellow", true).ColorString())
		return
	}
	fmt.Fprintln(c.out, figure.NewFigure(text, "", true).String())
}

func (c *Console) Title(format string, args ...any) {
	fmt.Fprintln(c.out)
	color.New(color.FgCyan, color.Bold).Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Info(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.out, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.out, color.YellowString("!")+" "+fmt.Sprintf(format, args...))
}

func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.out, color.RedString("✗")+" "+fmt.Sprintf(format, args...))
}

// Ask reads one line. An empty answer yields def.
func (c *Console) Ask(ctx context.Context, prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(c.out, "%s [%s]\n> ", prompt, def)
	} else {
		fmt.Fprintf(c.out, "%s\n> ", prompt)
	}
	line, err := c.next(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm asks a yes/no question.
func (c *Console) Confirm(ctx context.Context, prompt string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(c.out, "%s (%s) ", prompt, hint)
		line, err := c.next(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.Warn("please answer y or n")
	}
}

// Choose lists options and returns the selected index.
func (c *Console) Choose(ctx context.Context, prompt string, options []string) (int, error) {
	fmt.Fprintln(c.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, opt)
	}
	for {
		fmt.Fprint(c.out, "> ")
		line, err := c.next(ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		c.Warn("enter a number between 1 and %d", len(options))
	}
}

// Secret reads a line without echo. The caller wipes the result.
func (c *Console) Secret(ctx context.Context, prompt string) ([]byte, error) {
	if c.in.Busy() {
		// A timed-out card scan still owns the terminal read.
		c.Info("Press Enter to continue.")
		if _, err := c.in.NextLine(ctx); err != nil {
			return nil, err
		}
	}
	fmt.Fprint(c.out, prompt+": ")
	if !c.terminal {
		line, err := c.in.NextLine(ctx)
		if err != nil {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}
	secret, err := readPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return nil, err
	}
	return secret, nil
}

// Spin starts a spinner with msg. The returned func stops it.
func (c *Console) Spin(msg string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(c.out))
	s.Suffix = " " + msg
	_ = s.Color("cyan")
	s.Start()
	return s, s.Stop
}
