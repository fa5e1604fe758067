package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSubscriptionReceipt(toEmail, planName string, periodEnd time.Time) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	senderName  string
	frontendURL string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thanks for subscribing to {{.PlanName}}!</h2>
			<p>Your payment went through. Unlimited conversations are unlocked until:</p>
			<h3 style="color: #4CAF50;">{{.PeriodEnd}}</h3>
			<p><a href="{{.Link}}">Back to Genius</a></p>
		</div>
	`))

func NewEmailService(host string, port int, username, password, senderEmail, senderName, frontendURL string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		senderName:  senderName,
		frontendURL: frontendURL,
	}
}

func (s *emailService) SendSubscriptionReceipt(toEmail, planName string, periodEnd time.Time) error {
	var body bytes.Buffer
	err := receiptTemplate.Execute(&body, map[string]string{
		"PlanName":  planName,
		"PeriodEnd": periodEnd.UTC().Format("January 2, 2006"),
		"Link":      s.frontendURL + "/conversation",
	})
	if err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("Your %s receipt", planName))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send receipt to %s: %w", toEmail, err)
	}
	return nil
}
