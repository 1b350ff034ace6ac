// Package selector lets the user pick an account, with fzf when it is
// installed and a numbered fuzzy search prompt otherwise.
package selector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sahilm/fuzzy"
)

const maxMatches = 10

var (
	ErrNoAccounts = errors.New("no accounts found in ledger file")
	ErrCanceled   = errors.New("selection canceled")
)

// Selector picks one of Accounts.
type Selector struct {
	Accounts []string
	// UseFZF tries fzf before the built-in prompt.
	UseFZF bool
	// FZFBin is the fzf executable, "fzf" when empty.
	FZFBin string

	In  io.Reader
	Out io.Writer
}

// New returns a Selector reading the terminal through stdin and stdout.
func New(accounts []string, useFZF bool) *Selector {
	return &Selector{
		Accounts: accounts,
		UseFZF:   useFZF,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

// Select asks for an account. It returns ErrCanceled when the user gives up.
func (s *Selector) Select(ctx context.Context, prompt string) (string, error) {
	if len(s.Accounts) == 0 {
		return "", ErrNoAccounts
	}
	if s.UseFZF {
		bin := s.FZFBin
		if bin == "" {
			bin = "fzf"
		}
		if path, err := exec.LookPath(bin); err == nil {
			return s.selectFZF(ctx, path, prompt)
		}
	}
	return s.selectPrompt(prompt)
}

func (s *Selector) selectFZF(ctx context.Context, path, prompt string) (string, error) {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, path,
		"--prompt", prompt+": ",
		"--height", "40%",
		"--reverse",
		"--border",
		"--preview-window", "hidden",
	)
	cmd.Stdin = strings.NewReader(strings.Join(s.Accounts, "\n") + "\n")
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	// 1: no match, 130: interrupted with ctrl-c or esc
	if errors.As(err, &exitErr) && (exitErr.ExitCode() == 1 || exitErr.ExitCode() == 130) {
		return "", ErrCanceled
	}
	if err != nil {
		return "", fmt.Errorf("fzf: %w", err)
	}
	selected := strings.TrimSpace(out.String())
	if selected == "" {
		return "", ErrCanceled
	}
	return selected, nil
}

// selectPrompt is the fallback: search, pick a numbered match, repeat.
func (s *Selector) selectPrompt(prompt string) (string, error) {
	in := bufio.NewScanner(s.In)
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(s.Out)
	bold.Fprintln(s.Out, prompt)
	dim.Fprintln(s.Out, "Type to search (fuzzy matching), or press Enter with empty input to cancel")

	for {
		fmt.Fprint(s.Out, "\nSearch accounts: ")
		if !in.Scan() {
			return "", ErrCanceled
		}
		query := strings.TrimSpace(in.Text())
		if query == "" {
			return "", ErrCanceled
		}

		matches := Rank(query, s.Accounts)
		if len(matches) == 0 {
			yellow.Fprintln(s.Out, "No matches found. Try a different search term.")
			continue
		}

		bold.Fprintln(s.Out, "\nMatches:")
		for i, m := range matches {
			cyan.Fprintf(s.Out, "%2d", i+1)
			fmt.Fprintf(s.Out, ". %s\n", m)
		}

		fmt.Fprintf(s.Out, "\nSelect account (1-%d) or search again: ", len(matches))
		if !in.Scan() {
			return "", ErrCanceled
		}
		choice := strings.TrimSpace(in.Text())
		if choice == "" {
			continue
		}
		n, err := strconv.Atoi(choice)
		if err != nil {
			red.Fprintln(s.Out, "Invalid input. Please enter a number.")
			continue
		}
		if n < 1 || n > len(matches) {
			red.Fprintf(s.Out, "Invalid choice. Please enter 1-%d\n", len(matches))
			continue
		}
		return matches[n-1], nil
	}
}

// Rank returns the best fuzzy matches of query among accounts, best first.
func Rank(query string, accounts []string) []string {
	found := fuzzy.Find(query, accounts)
	if len(found) > maxMatches {
		found = found[:maxMatches]
	}
	ranked := make([]string, len(found))
	for i, m := range found {
		ranked[i] = m.Str
	}
	return ranked
}
