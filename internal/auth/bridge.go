// Package auth is the authentication bridge. Every operation runs in the
// background and reports its outcome to a Listener; callers never block on
// a sign-in.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"dailyledger/internal/log"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google.com"

	defaultTimeout = 30 * time.Second
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrInvalidState   = errors.New("invalid sign-in state")
)

type Identity struct {
	UserID   string
	Email    string
	Name     string
	Provider string
}

// Listener receives the outcome of bridge operations.
type Listener interface {
	OnAuthSuccess(id Identity)
	OnAuthError(msg string)
	OnLogout()
}

// GoogleIdentifier resolves an authorization code into an identity.
type GoogleIdentifier interface {
	AuthCodeURL(state string) string
	Identify(ctx context.Context, code string) (Identity, error)
}

type Bridge struct {
	accounts *Accounts
	google   GoogleIdentifier
	listener Listener
	timeout  time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	current *Identity
	states  map[string]time.Time

	wg sync.WaitGroup
}

// NewBridge wires the bridge. google may be nil when Google sign-in is not
// configured.
func NewBridge(accounts *Accounts, google GoogleIdentifier, listener Listener, logger *log.Logger) *Bridge {
	if accounts == nil {
		accounts = NewAccounts()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Bridge{
		accounts: accounts,
		google:   google,
		listener: listener,
		timeout:  defaultTimeout,
		logger:   logger.WithComponent(log.ComponentAuth),
		states:   make(map[string]time.Time),
	}
}

// GoogleAuthURL starts a Google sign-in and returns the consent URL.
func (b *Bridge) GoogleAuthURL() (string, error) {
	if b.google == nil {
		return "", ErrGoogleDisabled
	}
	state := uuid.NewString()
	b.mu.Lock()
	now := time.Now()
	for s, at := range b.states {
		if now.Sub(at) > 10*time.Minute {
			delete(b.states, s)
		}
	}
	b.states[state] = now
	b.mu.Unlock()
	return b.google.AuthCodeURL(state), nil
}

// SignInWithGoogle completes the flow started by GoogleAuthURL.
func (b *Bridge) SignInWithGoogle(state, code string) {
	b.run(log.OpSignIn, func(ctx context.Context) {
		if b.google == nil {
			b.fail(ctx, ErrGoogleDisabled)
			return
		}
		if !b.consumeState(state) {
			b.fail(ctx, ErrInvalidState)
			return
		}
		id, err := b.google.Identify(ctx, code)
		if err != nil {
			b.fail(ctx, err)
			return
		}
		id, err = b.accounts.Link(id)
		if err != nil {
			b.fail(ctx, err)
			return
		}
		b.succeed(ctx, id)
	})
}

// SignInWithEmailPassword signs in, registering the email if it is new.
func (b *Bridge) SignInWithEmailPassword(email, password string) {
	b.run(log.OpSignIn, func(ctx context.Context) {
		id, created, err := b.accounts.SignIn(email, password)
		if err != nil {
			b.fail(ctx, err)
			return
		}
		if created {
			b.logger.InfoContext(ctx, "Account registered", log.FieldUserID, id.UserID)
		}
		b.succeed(ctx, id)
	})
}

func (b *Bridge) SignOut() {
	b.run(log.OpSignOut, func(ctx context.Context) {
		b.mu.Lock()
		b.current = nil
		b.mu.Unlock()
		b.logger.InfoContext(ctx, "Signed out")
		b.listener.OnLogout()
	})
}

// CheckCurrentSession reports the current identity, or a logout when there
// is none.
func (b *Bridge) CheckCurrentSession() {
	b.run(log.OpSignIn, func(ctx context.Context) {
		cur, ok := b.Current()
		if !ok {
			b.listener.OnLogout()
			return
		}
		b.listener.OnAuthSuccess(cur)
	})
}

// Current returns the signed-in identity, if any.
func (b *Bridge) Current() (Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Identity{}, false
	}
	return *b.current, true
}

// Wait blocks until every operation started so far has reported.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) run(op string, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		fn(log.NewContext(ctx, b.logger.With(log.FieldOperation, op)))
	}()
}

func (b *Bridge) succeed(ctx context.Context, id Identity) {
	b.mu.Lock()
	b.current = &id
	b.mu.Unlock()
	b.logger.InfoContext(ctx, "Signed in", log.FieldUserID, id.UserID, "provider", id.Provider)
	b.listener.OnAuthSuccess(id)
}

func (b *Bridge) fail(ctx context.Context, err error) {
	b.logger.WarnContext(ctx, "Sign-in failed", log.FieldError, err.Error())
	b.listener.OnAuthError(err.Error())
}

func (b *Bridge) consumeState(state string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.states[state]; !ok {
		return false
	}
	delete(b.states, state)
	return true
}
