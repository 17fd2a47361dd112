// Package notification defines the mail transport contract and the
// dispatch state machine used by the email tasks.
package notification

import (
	"context"
	"errors"
	"time"
)

// Message is a rendered email
type Message struct {
	To      []string
	Subject string
	Body    string
	HTML    string
}

// Mailer sends rendered emails. Implementations wrap retryable transport
// failures with Transient so callers can tell them apart.
type Mailer interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// TransientError marks a mail transport failure that may succeed on retry
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient mail transport error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable transport failure. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is, or wraps, a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// State is a step of the dispatch state machine:
// Pending -> Sending -> {Sent | RetryScheduled -> Sending ... | Failed}
type State string

const (
	StatePending        State = "PENDING"
	StateSending        State = "SENDING"
	StateSent           State = "SENT"
	StateRetryScheduled State = "RETRY_SCHEDULED"
	StateFailed         State = "FAILED"
)

// IsTerminal reports whether no further transition can happen
func (s State) IsTerminal() bool {
	return s == StateSent || s == StateFailed
}

// Request identifies one dispatch and how often it has been retried
type Request struct {
	Key        string `json:"key"`
	Recipient  string `json:"recipient,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// Result is the outcome of a single dispatch attempt
type Result struct {
	Request    Request
	State      State
	MessageID  string
	RetryDelay time.Duration
	Err        error
}
