package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davarch/build-compare/internal/domain"
)

type Handler func(ctx context.Context, params json.RawMessage) (any, error)

type Dispatcher struct {
	log      *zap.Logger
	timeout  time.Duration
	handlers map[string]Handler
}

func NewDispatcher(l *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{log: l, timeout: timeout, handlers: make(map[string]Handler)}
}

// Handle registers h for command. Registration is not safe once serving has started.
func (d *Dispatcher) Handle(command string, h Handler) { d.handlers[command] = h }

func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	return out
}

// Dispatch runs a single request under the per-request timeout and always returns a Response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	resp := Response{Command: ResponseCommand(req.Command), RequestID: req.RequestID}

	h, ok := d.handlers[req.Command]
	if !ok {
		resp.Error = fmt.Sprintf("unknown command %q", req.Command)
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result, err := h(ctx, req.Params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		d.log.Warn("command failed",
			zap.String("command", req.Command),
			zap.String("request", req.RequestID),
			zap.Error(err))
		resp.Error = err.Error()
		return resp
	}

	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			resp.Error = fmt.Sprintf("encode result: %v", err)
			return resp
		}
		resp.Result = b
	}
	d.log.Debug("command done",
		zap.String("command", req.Command),
		zap.Duration("took", time.Since(start)))
	return resp
}

// ServeStream reads newline-delimited requests from r and writes responses to w.
// Requests run concurrently; everything still in flight is cancelled when r ends.
func (d *Dispatcher) ServeStream(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wmu      sync.Mutex
		enc      = json.NewEncoder(w)
		inflight = NewInflight()
		wg       sync.WaitGroup
	)
	write := func(resp Response) {
		wmu.Lock()
		defer wmu.Unlock()
		if err := enc.Encode(resp); err != nil {
			d.log.Warn("write response", zap.String("request", resp.RequestID), zap.Error(err))
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		var req Request
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			write(Response{Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		if req.Command == CancelCommand {
			var p cancelParams
			_ = json.Unmarshal(req.Params, &p)
			if !inflight.Cancel(p.RequestID) {
				d.log.Debug("cancel for idle request", zap.String("request", p.RequestID))
			}
			continue
		}

		reqCtx, release, err := inflight.Start(ctx, req.RequestID)
		if err != nil {
			write(Response{Command: ResponseCommand(req.Command), RequestID: req.RequestID, Error: err.Error()})
			continue
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			resp := d.Dispatch(reqCtx, req)
			release()
			write(resp)
		}(req)
	}

	cancel()
	wg.Wait()
	return sc.Err()
}

// Router exposes the handlers over HTTP: POST /rpc takes one Request and returns its Response.
func (d *Dispatcher) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/rpc", func(w http.ResponseWriter, hr *http.Request) {
		var req Request
		if err := json.NewDecoder(hr.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Error: fmt.Sprintf("invalid request: %v", err)})
			return
		}
		if req.RequestID == "" {
			req.RequestID = uuid.NewString()
		}

		resp := d.Dispatch(hr.Context(), req)
		status := http.StatusOK
		if _, ok := d.handlers[req.Command]; !ok {
			status = http.StatusNotFound
		}
		writeJSON(w, status, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
