package ports

import "context"

// EmailSender sends emails / Envoie des emails
type EmailSender interface {
	// Send sends an HTML email / Envoie un email HTML
	Send(ctx context.Context, to, subject, body string) error
}
