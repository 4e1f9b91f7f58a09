package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the relay host is unset.
var ErrNotConfigured = errors.New("email: relay is not configured")

// Kind tells the two contact dispatches apart in logs and metrics.
type Kind string

const (
	KindOwner          Kind = "owner"
	KindAcknowledgment Kind = "acknowledgment"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name    string
	Address string
}

// Message is one fully formed outbound email.
type Message struct {
	Kind     Kind
	From     Address
	To       string
	ReplyTo  string // optional
	Subject  string
	HTMLBody string
}

// Mailer hands a message to the relay. A nil error means the relay accepted it.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DispatchError is the failure outcome of a single Send.
type DispatchError struct {
	Kind Kind
	To   string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("email: %s dispatch to %s failed: %v", e.Kind, maskAddress(e.To), e.Err)
}

// maskAddress keeps the first character and the domain: "j***@example.com".
func maskAddress(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 1 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Observer receives the outcome of every dispatch.
type Observer interface {
	ObserveDispatch(kind Kind, err error, elapsed time.Duration)
}

type observedMailer struct {
	next     Mailer
	observer Observer
}

// Observe wraps next so each Send is reported to observer.
func Observe(next Mailer, observer Observer) Mailer {
	if observer == nil {
		return next
	}
	return &observedMailer{next: next, observer: observer}
}

func (m *observedMailer) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := m.next.Send(ctx, msg)
	m.observer.ObserveDispatch(msg.Kind, err, time.Since(start))
	return err
}
