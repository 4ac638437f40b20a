package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/browser"
)

// TerminalPrompter asks yes/no questions on the controlling terminal. It
// declines without asking when input is not a terminal.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func NewTerminalPrompter() TerminalPrompter {
	return TerminalPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p TerminalPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	if !IsTerminal(p.In) {
		return false, nil
	}
	fmt.Fprintf(p.Out, "\n== %s ==\n%s\n[y/N]: ", title, message)

	// The read cannot be interrupted; on cancel the goroutine finishes on
	// the next line of input.
	answer := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		if err != nil && line == "" {
			errs <- err
			return
		}
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errs:
		if err == io.EOF {
			return false, nil
		}
		return false, err
	case line := <-answer:
		return parseYes(line), nil
	}
}

func parseYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// BrowserOpener hands URLs to the desktop's default browser.
type BrowserOpener struct {
	// OpenURL defaults to browser.OpenURL.
	OpenURL func(url string) error
}

// Open ignores ctx once the launch has begun; the browser outlives the relay.
func (o BrowserOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	open := o.OpenURL
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(url); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
