package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"gopkg.in/gomail.v2"
)

// Mail is one outbound message. Body is trusted HTML placed inside the layout.
type Mail struct {
	To      string
	Subject string
	Title   string
	Body    template.HTML
}

type EmailService interface {
	Send(ctx context.Context, m Mail) error
}

var layout = template.Must(template.New("layout").Parse(`<div style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 30px;">
<div style="max-width: 600px; margin: 0 auto; background: #fff; border-radius: 8px;">
<div style="background-color: #007bff; color: white; padding: 15px 20px; text-align: center; font-size: 20px; font-weight: bold;">Task Management System</div>
<div style="padding: 20px;">
<h2 style="color: #333;">{{.Title}}</h2>
<div style="color: #555; font-size: 15px; line-height: 1.6;">{{.Body}}</div>
</div>
<div style="background: #f0f0f0; text-align: center; padding: 10px; color: #777; font-size: 13px;">&copy; {{.Year}} Task Management System. All rights reserved.</div>
</div>
</div>
`))

// RenderLayout wraps body in the shared HTML mail layout. Title is escaped.
func RenderLayout(title string, body template.HTML, year int) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Title string
		Body  template.HTML
		Year  int
	}{title, body, year})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
	now    func() time.Time
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	if fromEmail == "" {
		fromEmail = smtpUser
	}
	return &emailService{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
		now:    time.Now,
	}
}

func (s *emailService) Send(ctx context.Context, m Mail) error {
	if s.dialer.Host == "" {
		log.Printf("[email][skip] smtp not configured to=%q subject=%q", m.To, m.Subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	html, err := RenderLayout(m.Title, m.Body, s.now().Year())
	if err != nil {
		return fmt.Errorf("render mail: %w", err)
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.from, "Task Manager")
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	log.Printf("[email][ok] to=%q subject=%q", m.To, m.Subject)
	return nil
}
