package services

import (
	"context"
	"sync"

	"dailyledger/internal/auth"
	"dailyledger/internal/log"
)

// LoginState applies authentication outcomes: the session's login flag
// and the mirror namespace. It also keeps the last outcome for the shell
// to poll.
type LoginState struct {
	session *SessionService
	mirror  *MirrorDispatcher
	logger  *log.Logger

	mu        sync.RWMutex
	identity  *auth.Identity
	lastError string
}

var _ auth.Listener = (*LoginState)(nil)

func NewLoginState(session *SessionService, mirror *MirrorDispatcher, logger *log.Logger) *LoginState {
	if logger == nil {
		logger = log.Discard()
	}
	return &LoginState{
		session: session,
		mirror:  mirror,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

func (l *LoginState) OnAuthSuccess(id auth.Identity) {
	l.mu.Lock()
	l.identity = &id
	l.lastError = ""
	l.mu.Unlock()

	if l.mirror != nil {
		l.mirror.SetUser(id.UserID)
	}
	if err := l.session.SetLoggedIn(context.Background(), true); err != nil {
		l.logger.Error("Could not record sign-in", log.FieldError, err.Error())
	}
}

// OnAuthError keeps the message; the session and ledger are left alone.
func (l *LoginState) OnAuthError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = msg
}

func (l *LoginState) OnLogout() {
	l.mu.Lock()
	l.identity = nil
	l.lastError = ""
	l.mu.Unlock()

	if l.mirror != nil {
		l.mirror.SetUser("")
	}
	if err := l.session.SetLoggedIn(context.Background(), false); err != nil {
		l.logger.Error("Could not record sign-out", log.FieldError, err.Error())
	}
}

// Status returns the signed-in identity, if any, and the last error message.
func (l *LoginState) Status() (id auth.Identity, signedIn bool, lastError string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.identity != nil {
		id, signedIn = *l.identity, true
	}
	return id, signedIn, l.lastError
}
