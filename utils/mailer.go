package utils

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// MailConfig carries SMTP settings.
type MailConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// Mailer sends transactional email over SMTP.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewMailer(cfg MailConfig) *Mailer {
	return &Mailer{
		from:   cfg.User,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

const emailTemplate = `<!DOCTYPE html>
<html>
<head>
	<title>%[1]s</title>
	<style>
		body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 0; }
		.container { background-color: #ffffff; margin: 20px auto; padding: 20px; border-radius: 8px; max-width: 600px; }
		h1 { color: #333333; }
		p { color: #666666; }
		.highlight { font-weight: bold; color: #007bff; }
	</style>
</head>
<body>
	<div class="container">
		<h1>%[1]s</h1>
		<p>%[2]s</p>
		<p class="highlight">%[3]s</p>
		<p>%[4]s</p>
	</div>
</body>
</html>`

func (m *Mailer) send(to, subject, text, lead, highlight, footer string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", fmt.Sprintf(emailTemplate,
		html.EscapeString(subject),
		html.EscapeString(lead),
		html.EscapeString(highlight),
		html.EscapeString(footer),
	))
	return m.dialer.DialAndSend(msg)
}

// SendResetCode emails a password reset code.
func (m *Mailer) SendResetCode(email, code string) error {
	return m.send(email, "Password Reset Code",
		"Your password reset code is: "+code,
		"Your password reset code is:", code,
		"If you did not request a password reset, please ignore this email.")
}

// SendRefillReminder emails a low supply warning.
func (m *Mailer) SendRefillReminder(email, medication string, remaining int) error {
	line := fmt.Sprintf("%s: %d doses remaining", medication, remaining)
	return m.send(email, "Time to refill "+medication,
		"Your supply is running low. "+line,
		"Your supply is running low.", line,
		"Contact your pharmacy to arrange a refill.")
}
