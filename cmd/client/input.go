package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// prompter asks for values the user did not pass as flags. Passwords are read
// without echo when readPassword is set.
type prompter struct {
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

func (p *prompter) text(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) password(label string) (string, error) {
	if p.readPassword == nil {
		return p.text(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	pw, err := p.readPassword()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// orPrompt returns value, asking for it when empty.
func (p *prompter) orPrompt(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	return p.text(label)
}
