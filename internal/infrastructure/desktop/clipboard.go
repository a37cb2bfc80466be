package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoClipboard = errors.New("no clipboard tool found")

type clipTool struct {
	name string
	args []string
}

// Tried in order; the first one on PATH wins.
var clipTools = []clipTool{
	{"wl-copy", nil},
	{"xclip", []string{"-selection", "clipboard"}},
	{"xsel", []string{"--clipboard", "--input"}},
	{"pbcopy", nil},
	{"clip.exe", nil},
}

type Clipboard struct {
	soft     bool
	lookPath func(string) (string, error)
	pipe     func(ctx context.Context, text, name string, args ...string) error
}

func NewClipboard() *Clipboard { return &Clipboard{lookPath: exec.LookPath, pipe: pipeCommand} }

// NewSoftClipboard swallows a missing tool or a failing copy.
func NewSoftClipboard() *Clipboard {
	c := NewClipboard()
	c.soft = true
	return c
}

func (c *Clipboard) Copy(ctx context.Context, text string) error {
	err := c.copy(ctx, text)
	if c.soft {
		return nil
	}
	return err
}

func (c *Clipboard) copy(ctx context.Context, text string) error {
	for _, t := range clipTools {
		if _, err := c.lookPath(t.name); err != nil {
			continue
		}
		if err := c.pipe(ctx, text, t.name, t.args...); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		return nil
	}
	return ErrNoClipboard
}

func pipeCommand(ctx context.Context, text, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
