package mealsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindUnreachable
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

var (
	// ErrTimeout matches any call that did not finish within the request timeout.
	ErrTimeout = errors.New("request timed out")
	// ErrUnreachable matches any call that got no response at all.
	ErrUnreachable = errors.New("backend unreachable")
	// ErrMissingID is returned before any request when an operation needs a meal id.
	ErrMissingID = errors.New("meal id is required")
)

// Error is the classified failure of a single call.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int
	// Detail is the server supplied message, if any.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Detail != "" {
			return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.StatusCode, e.Detail)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: server error (status %d): %v", e.Op, e.StatusCode, e.Err)
		}
		return fmt.Sprintf("%s: server error (status %d)", e.Op, e.StatusCode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTimeout) and errors.Is(err, ErrUnreachable) work.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	}
	return false
}

// Message returns the text shown to the user.
func (e *Error) Message() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timeout. The server is taking too long to respond."
	case KindUnreachable:
		return "Cannot connect to the meals backend. Make sure it is running and reachable."
	default:
		if e.Detail != "" {
			return e.Detail
		}
		if e.Err != nil {
			return "The server sent a response that could not be read. Please try again."
		}
		return fmt.Sprintf("The server could not complete the request (status %d). Please try again.", e.StatusCode)
	}
}

// UserMessage resolves any error returned by this package to one
// human-readable sentence.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	if errors.Is(err, context.Canceled) {
		return "The request was cancelled."
	}
	if errors.Is(err, ErrMissingID) {
		return "Please choose a meal first."
	}
	return err.Error()
}

// classifyTransport maps an error from http.Client.Do (or from reading the
// body) onto the timeout / unreachable split. Cancellation by the caller is
// passed through untouched.
func classifyTransport(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Op: op, Kind: KindTimeout, Err: err}
	}
	return &Error{Op: op, Kind: KindUnreachable, Err: err}
}

// detailFromBody extracts the "detail" field the backend puts on errors. It
// is either a string or a list of validation entries with a "msg" field.
func detailFromBody(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
