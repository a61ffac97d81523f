// Package email delivers one-time login codes over SMTP.
package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPSender sends login codes through an SMTP relay using gomail.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	codeTTL  time.Duration

	// send is swappable in tests; defaults to dialing the relay.
	send func(m *gomail.Message) error
}

// NewSMTPSender returns a sender for the given relay. from is the From header
// on every message; codeTTL is mentioned in the message body so recipients
// know how long the code lives.
func NewSMTPSender(host string, port int, username, password, from string, codeTTL time.Duration) *SMTPSender {
	s := &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		codeTTL:  codeTTL,
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(s.host, s.port, s.username, s.password)
		return d.DialAndSend(m)
	}
	return s
}

// SendOTP emails the login code to the given address. Does not log the code.
func (s *SMTPSender) SendOTP(to, code string) error {
	if s.host == "" {
		return fmt.Errorf("email: SMTP host not configured")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your login code")
	m.SetBody("text/plain", fmt.Sprintf(
		"Your login code is: %s\n\nThis code expires in %s. If you did not request it, ignore this email.",
		code, s.codeTTL.Round(time.Minute)))
	return s.send(m)
}
