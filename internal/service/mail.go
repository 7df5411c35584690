package service

import (
	"errors"
	"fmt"
	"html"

	"bitwise74/seed-swap/config"

	"gopkg.in/gomail.v2"
)

type Mailer interface {
	SendWelcome(to, username string) error
}

// SMTPMailer sends mail through the configured SMTP server
type SMTPMailer struct {
	cfg    config.MailConfig
	domain string
	https  bool
}

func NewSMTPMailer(c config.MailConfig, domain string, https bool) *SMTPMailer {
	return &SMTPMailer{cfg: c, domain: domain, https: https}
}

func (m *SMTPMailer) SendWelcome(to, username string) error {
	if to == m.cfg.Sender {
		return errors.New("invalid email address")
	}

	var s string
	if m.https {
		s = "s"
	}

	link := fmt.Sprintf("http%v://%v/seeds/new", s, m.domain)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Welcome to SeedSwap")
	msg.SetBody("text/html", fmt.Sprintf(
		"Hi %v,<br><br>your account is ready. <a href='%v'>List your first seeds</a> so other gardeners can find them.",
		html.EscapeString(username), link,
	))

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Sender, m.cfg.Password)
	return d.DialAndSend(msg)
}
