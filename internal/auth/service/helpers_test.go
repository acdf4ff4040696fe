package service

import (
	"context"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/halcyonlabs/authd/internal/auth/domain"
	"github.com/halcyonlabs/authd/internal/auth/notify"
	"github.com/halcyonlabs/authd/internal/auth/store/drivers/sqlite"
	"github.com/halcyonlabs/authd/pkg/jwtx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type sentNote struct {
	To       string
	Template notify.Template
	Data     notify.Data
}

// captureNotifier records deliveries on a channel so tests can wait for the
// async send without sleeping.
type captureNotifier struct {
	ch chan sentNote
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{ch: make(chan sentNote, 32)}
}

func (n *captureNotifier) Send(_ context.Context, to string, tpl notify.Template, data notify.Data) error {
	n.ch <- sentNote{To: to, Template: tpl, Data: data}
	return nil
}

// wait blocks until a notification with the given template arrives, skipping
// any others sent in between.
func (n *captureNotifier) wait(t *testing.T, tpl notify.Template) sentNote {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case note := <-n.ch:
			if note.Template == tpl {
				return note
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q notification", tpl)
		}
	}
}

type testEnv struct {
	store  *sqlite.Store
	clock  *clockwork.FakeClock
	tokens *TokenService
	guard  *LoginGuard
	mfa    *MFAService
	auth   *AuthService
	notes  *captureNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := clockwork.NewFakeClock()
	codec := jwtx.NewCodec([]byte("access-secret"), []byte("refresh-secret"), "authd-test", clock.Now)

	tokens := &TokenService{Codec: codec, Store: st, Clock: clock}
	guard := &LoginGuard{Store: st, Clock: clock}
	mfa := &MFAService{Store: st, Clock: clock, Issuer: "authd-test"}
	notes := newCaptureNotifier()

	auth := &AuthService{
		Store:      st,
		Tokens:     tokens,
		MFA:        mfa,
		Guard:      guard,
		Notifier:   notes,
		Clock:      clock,
		AppBaseURL: "https://auth.test",
	}

	return &testEnv{store: st, clock: clock, tokens: tokens, guard: guard, mfa: mfa, auth: auth, notes: notes}
}

func (e *testEnv) register(t *testing.T, name, email, password string) *domain.LoginResult {
	t.Helper()
	result, err := e.auth.Register(context.Background(), name, email, password, domain.RoleUser)
	require.NoError(t, err)
	return result
}

// tokenFromLink pulls the token query parameter out of an emailed link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token, "no token in link %q", link)
	return token
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
