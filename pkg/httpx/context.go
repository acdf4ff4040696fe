package httpx

// Context keys used to pass authenticated identity to downstream handlers.
type contextKey string

const (
	CtxKeyUserID contextKey = "authd.user_id"
	CtxKeyEmail  contextKey = "authd.email"
	CtxKeyRole   contextKey = "authd.role"
	CtxKeyClaims contextKey = "authd.claims"
)
