package notify

import "context"

// Template names the outbound message kinds the auth flows can send.
type Template string

const (
	TemplateWelcome         Template = "welcome"
	TemplateVerifyEmail     Template = "verify_email"
	TemplateResetPassword   Template = "reset_password"
	TemplatePasswordChanged Template = "password_changed"
	TemplateLoginAlert      Template = "login_alert"
)

// Data carries template parameters (name, link, source_addr, ...).
type Data map[string]string

// Notifier delivers a templated message to a recipient. Callers treat
// delivery as best-effort: failures are logged, never propagated.
type Notifier interface {
	Send(ctx context.Context, to string, tpl Template, data Data) error
}
