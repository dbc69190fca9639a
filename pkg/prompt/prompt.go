// Package prompt asks the operator questions on the console.
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

// Answer is the operator's response to a choice prompt.
type Answer int

const (
	Cancel Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "cancel"
	}
}

// Prompter is the dialog layer a run is configured through.
type Prompter interface {
	// YesNoCancel asks a three-way question.
	YesNoCancel(title, message string) Answer

	// YesNo asks a two-way question. Anything but yes is No.
	YesNo(title, message string) Answer

	// Input asks for a single value. ok is false when the operator
	// cancelled, which an empty answer also means.
	Input(message string, hidden bool) (value string, ok bool)
}

// Console prompts on a terminal. Hidden input is read without echo when
// the input is a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // -1 when input is not a terminal
}

// NewConsole returns a Console bound to stdin and stdout.
func NewConsole() *Console {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &Console{in: bufio.NewReader(os.Stdin), out: os.Stdout, fd: fd}
}

// NewReaderConsole returns a Console reading answers from r, for scripted
// input. Hidden input is read like any other line.
func NewReaderConsole(r io.Reader, w io.Writer) *Console {
	return &Console{in: bufio.NewReader(r), out: w, fd: -1}
}

func (c *Console) YesNoCancel(title, message string) Answer {
	c.header(title, message)
	for {
		fmt.Fprint(c.out, "[y]es / [n]o / [c]ancel: ")
		line, err := c.readLine()
		if err != nil {
			return Cancel
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return Yes
		case "n", "no":
			return No
		case "c", "cancel", "":
			return Cancel
		}
	}
}

func (c *Console) YesNo(title, message string) Answer {
	c.header(title, message)
	fmt.Fprint(c.out, "[y]es / [n]o: ")
	line, err := c.readLine()
	if err != nil {
		return No
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return Yes
	}
	return No
}

func (c *Console) Input(message string, hidden bool) (string, bool) {
	fmt.Fprintf(c.out, "%s\n> ", message)

	var (
		value string
		err   error
	)
	if hidden && c.fd >= 0 {
		var b []byte
		b, err = term.ReadPassword(c.fd)
		fmt.Fprintln(c.out)
		value = string(b)
	} else {
		value, err = c.readLine()
	}
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (c *Console) header(title, message string) {
	if title != "" {
		fmt.Fprintf(c.out, "\n%s\n", title)
	}
	fmt.Fprintln(c.out, message)
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned; EOF with no data is an error.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
