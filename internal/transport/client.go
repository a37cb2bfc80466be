package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/domain"
)

const (
	DefaultTimeout = 30 * time.Second
	maxLine        = 8 << 20
)

// Client sends requests as newline-delimited JSON and matches replies by request id.
type Client struct {
	log     *zap.Logger
	reg     *Registry
	timeout time.Duration

	wmu sync.Mutex
	w   io.Writer
	enc *json.Encoder

	done chan struct{}
}

// NewClient starts reading responses from r until it ends or the client is closed.
func NewClient(l *zap.Logger, r io.Reader, w io.Writer, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		log:     l,
		reg:     NewRegistry(),
		timeout: timeout,
		w:       w,
		enc:     json.NewEncoder(w),
		done:    make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *Client) readLoop(r io.Reader) {
	defer close(c.done)
	defer c.reg.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		var resp Response
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			c.log.Warn("bad response line", zap.Error(err))
			continue
		}
		if !c.reg.Resolve(resp) {
			c.log.Debug("response without waiter", zap.String("command", resp.Command), zap.String("request", resp.RequestID))
		}
	}
	if err := sc.Err(); err != nil {
		c.log.Warn("response stream failed", zap.Error(err))
	}
}

// Call sends command with params and decodes the result into out (which may be nil).
func (c *Client) Call(ctx context.Context, command string, params, out any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", command, err)
		}
		raw = b
	}

	id, ch, err := c.reg.Register()
	if err != nil {
		return err
	}
	if err := c.send(Request{Command: command, RequestID: id, Params: raw}); err != nil {
		c.reg.Cancel(id)
		return fmt.Errorf("send %s: %w", command, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != "" {
			return &RemoteError{Command: command, Message: resp.Error}
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", command, err)
		}
		return nil
	case <-timer.C:
		c.abandon(id)
		return fmt.Errorf("%s: %w", command, domain.ErrTimeout)
	case <-ctx.Done():
		c.abandon(id)
		return ctx.Err()
	}
}

// abandon forgets id locally and asks the remote side to stop working on it.
func (c *Client) abandon(id string) {
	c.reg.Cancel(id)
	p, _ := json.Marshal(cancelParams{RequestID: id})
	if err := c.send(Request{Command: CancelCommand, RequestID: id, Params: p}); err != nil {
		c.log.Debug("cancel not sent", zap.String("request", id), zap.Error(err))
	}
}

func (c *Client) send(req Request) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.enc.Encode(req)
}

// Done is closed once the response stream has ended.
func (c *Client) Done() <-chan struct{} { return c.done }

// Pending reports how many calls are waiting for a response.
func (c *Client) Pending() int { return c.reg.Pending() }

// Close fails every pending call with ErrClosed and closes the writer when it is closable.
func (c *Client) Close() error {
	c.reg.Close()
	if cl, ok := c.w.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
