package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// DefaultTimeout bounds one relay session when SMTPConfig.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// SMTPConfig holds the relay connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// SSL uses implicit TLS instead of STARTTLS. Port 465 always implies it.
	SSL bool
	// InsecureSkipVerify accepts any relay certificate (local relays with self-signed certs).
	InsecureSkipVerify bool
	// Timeout bounds a whole session: dial, greeting, auth and data.
	Timeout time.Duration
}

func (c SMTPConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPMailer sends mail through an authenticated SMTP relay.
// It only carries settings and every send opens its own connection,
// so one SMTPMailer is shared by all requests.
type SMTPMailer struct {
	cfg       SMTPConfig
	ssl       bool
	tlsConfig *tls.Config
}

// NewSMTPMailer creates the process-wide relay client.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &SMTPMailer{
		cfg: cfg,
		ssl: cfg.SSL || cfg.Port == 465,
		tlsConfig: &tls.Config{
			ServerName:         cfg.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via SMTP_TLS_INSECURE
		},
	}
}

// Send delivers msg. It does not retry; the caller decides what a failure means.
// A relay that stalls past the timeout or ctx fails with context.DeadlineExceeded.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return &DispatchError{Kind: msg.Kind, To: msg.To, Err: err}
	}
	if s.cfg.Host == "" {
		return &DispatchError{Kind: msg.Kind, To: msg.To, Err: ErrNotConfigured}
	}

	err := s.session(ctx, func(c *smtp.Client) error {
		if err := c.Mail(msg.From.Address); err != nil {
			return err
		}
		if err := c.Rcpt(msg.To); err != nil {
			return err
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := buildMessage(msg).WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
	if err != nil {
		return &DispatchError{Kind: msg.Kind, To: msg.To, Err: err}
	}
	return nil
}

// Verify connects and authenticates against the relay, then hangs up.
func (s *SMTPMailer) Verify(ctx context.Context) error {
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}

	if err := s.session(ctx, func(*smtp.Client) error { return nil }); err != nil {
		return fmt.Errorf("email: verify %s: %w", s.cfg.addr(), err)
	}
	return nil
}

// Addr returns host:port of the relay.
func (s *SMTPMailer) Addr() string {
	return s.cfg.addr()
}

// session runs fn on an authenticated connection. The connection deadline is
// the earlier of ctx's deadline and the configured timeout, and cancelling ctx
// closes the connection.
func (s *SMTPMailer) session(ctx context.Context, fn func(*smtp.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.addr())
	if err != nil {
		return sessionErr(ctx, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	if s.ssl {
		conn = tls.Client(conn, s.tlsConfig)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return sessionErr(ctx, err)
	}
	defer c.Close()

	if err := s.handshake(c); err != nil {
		return sessionErr(ctx, err)
	}
	if err := fn(c); err != nil {
		return sessionErr(ctx, err)
	}

	// The relay already accepted the message
	_ = c.Quit()
	return nil
}

// handshake follows gomail's Dialer.Dial: EHLO, STARTTLS when offered, then
// the strongest advertised auth mechanism.
func (s *SMTPMailer) handshake(c *smtp.Client) error {
	if err := c.Hello("localhost"); err != nil {
		return err
	}

	if !s.ssl {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig); err != nil {
				return err
			}
		}
	}

	if s.cfg.Username == "" {
		return nil
	}
	ok, mechs := c.Extension("AUTH")
	if !ok {
		return nil
	}
	return c.Auth(authFor(mechs, s.cfg.Username, s.cfg.Password, s.cfg.Host))
}

// sessionErr reports a stalled or cancelled session as the context error.
func sessionErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.From.Address, msg.From.Name)
	m.SetHeader("To", msg.To)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	return m
}
