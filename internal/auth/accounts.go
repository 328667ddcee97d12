package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")
	ErrWrongPassword    = errors.New("wrong password")
	ErrProviderMismatch = errors.New("account uses another sign-in provider")
)

type account struct {
	userID   string
	email    string
	hash     []byte
	provider string
}

// Accounts is the local credential store. Unknown emails are registered on
// first sign-in.
type Accounts struct {
	mu     sync.Mutex
	byMail map[string]*account
	cost   int
}

func NewAccounts() *Accounts {
	return &Accounts{byMail: make(map[string]*account), cost: bcrypt.DefaultCost}
}

// SignIn checks the password of a known email, or registers the email when
// it is new. created reports which of the two happened.
func (a *Accounts) SignIn(email, password string) (id Identity, created bool, err error) {
	email, err = normalizeEmail(email)
	if err != nil {
		return Identity{}, false, err
	}
	if len(password) < minPasswordLength {
		return Identity{}, false, ErrWeakPassword
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if acc, ok := a.byMail[email]; ok {
		if acc.provider != ProviderPassword {
			return Identity{}, false, ErrProviderMismatch
		}
		if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
			return Identity{}, false, ErrWrongPassword
		}
		return acc.identity(), false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Identity{}, false, fmt.Errorf("hash password: %w", err)
	}
	acc := &account{userID: uuid.NewString(), email: email, hash: hash, provider: ProviderPassword}
	a.byMail[email] = acc
	return acc.identity(), true, nil
}

// Link returns the identity for a federated sign-in, creating the account
// the first time the email is seen.
func (a *Accounts) Link(id Identity) (Identity, error) {
	email, err := normalizeEmail(id.Email)
	if err != nil {
		return Identity{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.byMail[email]; ok {
		if acc.provider != id.Provider {
			return Identity{}, ErrProviderMismatch
		}
		out := acc.identity()
		out.Name = id.Name
		return out, nil
	}
	userID := id.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	acc := &account{userID: userID, email: email, provider: id.Provider}
	a.byMail[email] = acc
	out := acc.identity()
	out.Name = id.Name
	return out, nil
}

func (acc *account) identity() Identity {
	return Identity{UserID: acc.userID, Email: acc.email, Provider: acc.provider}
}

func normalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}
