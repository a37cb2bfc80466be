// Package transport correlates request/response messages exchanged with a host process.
package transport

import (
	"encoding/json"
	"fmt"
)

// CancelCommand aborts the in-flight request named by params.requestId.
const CancelCommand = "cancel"

type Request struct {
	Command   string          `json:"command"`
	RequestID string          `json:"requestId"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	Command   string          `json:"command"`
	RequestID string          `json:"requestId"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type cancelParams struct {
	RequestID string `json:"requestId"`
}

func ResponseCommand(command string) string { return command + "Response" }

// RemoteError carries the error text a handler reported for a command.
type RemoteError struct {
	Command string
	Message string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Command, e.Message) }
