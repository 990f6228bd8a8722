package services

import "context"

// PushSender delivers a push notification to one device token. Any error
// counts as a failed delivery.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]interface{}) error
}

// Mailer sends transactional email.
type Mailer interface {
	SendResetCode(email, code string) error
	SendRefillReminder(email, medication string, remaining int) error
}
