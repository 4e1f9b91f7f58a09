package email

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// authFor picks CRAM-MD5, then LOGIN, then PLAIN, the order gomail uses.
func authFor(mechs, username, password, host string) smtp.Auth {
	switch {
	case strings.Contains(mechs, "CRAM-MD5"):
		return smtp.CRAMMD5Auth(username, password)
	case strings.Contains(mechs, "LOGIN"):
		return &loginAuth{username: username, password: password, host: host}
	default:
		return smtp.PlainAuth("", username, password, host)
	}
}

// loginAuth implements AUTH LOGIN, which net/smtp lacks. Office 365 only offers this one.
type loginAuth struct {
	username string
	password string
	host     string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("email: unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, errors.New("email: wrong host name")
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("email: unexpected server challenge %q", fromServer)
	}
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
