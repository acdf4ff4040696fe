package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier delivers mail through the Resend API.
type ResendNotifier struct {
	client  *resend.Client
	from    string
	appName string
}

func NewResendNotifier(apiKey, from, appName string) *ResendNotifier {
	return &ResendNotifier{
		client:  resend.NewClient(apiKey),
		from:    from,
		appName: appName,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, to string, tpl Template, data Data) error {
	subject, html, text, err := render(n.appName, tpl, data)
	if err != nil {
		return err
	}

	_, err = n.client.Emails.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("resend send %q: %w", tpl, err)
	}
	return nil
}

func render(appName string, tpl Template, data Data) (subject, html, text string, err error) {
	name := data["name"]
	if name == "" {
		name = "there"
	}

	switch tpl {
	case TemplateWelcome:
		subject = fmt.Sprintf("Welcome to %s", appName)
		text = fmt.Sprintf("Hi %s,\n\nYour %s account is ready.", name, appName)

	case TemplateVerifyEmail:
		subject = fmt.Sprintf("Verify your %s email", appName)
		text = fmt.Sprintf("Hi %s,\n\nVerify your email address: %s\n\nThe link expires in 24 hours.", name, data["link"])

	case TemplateResetPassword:
		subject = fmt.Sprintf("Reset your %s password", appName)
		text = fmt.Sprintf("Hi %s,\n\nReset your password: %s\n\nThe link expires in 1 hour. If you did not request this, ignore this email.", name, data["link"])

	case TemplatePasswordChanged:
		subject = fmt.Sprintf("Your %s password was changed", appName)
		text = fmt.Sprintf("Hi %s,\n\nYour password was just changed. If this wasn't you, reset your password immediately.", name)

	case TemplateLoginAlert:
		subject = fmt.Sprintf("New sign-in to your %s account", appName)
		text = fmt.Sprintf("Hi %s,\n\nA new sign-in from %s at %s. If this wasn't you, reset your password.", name, data["source_addr"], data["at"])

	default:
		return "", "", "", fmt.Errorf("unknown notification template %q", tpl)
	}

	html = "<p>" + strings.ReplaceAll(text, "\n\n", "</p><p>") + "</p>"
	return subject, html, text, nil
}
