package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
)

// errInterrupted is returned by Readline on Ctrl+C.
var errInterrupted = errors.New("interrupted")

type prompt struct {
	rl *readline.Instance
}

func newPrompt(historyFile string) (*prompt, error) {
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create history directory")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            color.GreenString("> "),
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "bye",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create readline instance")
	}
	return &prompt{rl: rl}, nil
}

// Readline returns the next message, io.EOF on Ctrl+D.
// Blank lines are skipped.
func (p *prompt) Readline() (string, error) {
	for {
		line, err := p.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				return "", errInterrupted
			}
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", errors.WithStack(err)
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
}

func (p *prompt) Stdout() io.Writer {
	return p.rl.Stdout()
}

func (p *prompt) Close() error {
	return p.rl.Close()
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".calagent_history")
}
