package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errPasswordsDiffer = errors.New("passwords do not match")

// readLine prompts on stderr and reads one line of input
func (a *app) readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(prompt), ":"), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readSecret reads without echo from a terminal, or a plain line otherwise
func (a *app) readSecret(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return a.readLine(prompt)
}

// readNewSecret asks twice and returns both answers. The server compares
// them for the endpoints that take a retyped password.
func (a *app) readNewSecret(prompt string) (string, string, error) {
	first, err := a.readSecret(prompt)
	if err != nil {
		return "", "", err
	}
	second, err := a.readSecret("Repeat " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

// valueOrPrompt returns v, prompting for it when empty
func (a *app) valueOrPrompt(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return a.readLine(prompt)
}
