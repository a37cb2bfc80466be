// Package desktop talks to the local desktop session through its command-line tools.
package desktop

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const appName = "build-compare"

type Notifier struct {
	soft    bool
	urgency string
	expire  time.Duration
	run     func(ctx context.Context, name string, args ...string) error
}

// NewSoftNotifier ignores notify-send failures so a headless session never stops a watch.
func NewSoftNotifier() *Notifier { return &Notifier{soft: true, run: runCommand} }

func (n *Notifier) WithUrgency(u string) *Notifier      { n.urgency = u; return n }
func (n *Notifier) WithExpire(d time.Duration) *Notifier { n.expire = d; return n }

func (n *Notifier) Notify(ctx context.Context, title, body, url string) error {
	if strings.TrimSpace(url) != "" {
		if body == "" {
			body = url
		} else {
			body = body + "\n" + url
		}
	}

	args := []string{"--app-name=" + appName}
	if n.urgency != "" {
		args = append(args, "--urgency="+n.urgency)
	}
	if n.expire > 0 {
		args = append(args, "--expire-time="+strconv.Itoa(int(n.expire/time.Millisecond)))
	}
	args = append(args, title, body)

	if err := n.run(ctx, "notify-send", args...); err != nil && !n.soft {
		return err
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
