package http

import (
	"errors"
	"net/http"

	"dailyledger/internal/auth"
)

type authStatusResponse struct {
	SignedIn  bool   `json:"signedIn"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Provider  string `json:"provider,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

// accepted answers bridge calls. The outcome shows up in /api/auth/status.
func accepted(w http.ResponseWriter) {
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
}

func (s *Server) authAvailable(w http.ResponseWriter) bool {
	if s.deps.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "authentication is not configured")
		return false
	}
	return true
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Status == nil {
		writeJSON(w, http.StatusOK, authStatusResponse{SignedIn: s.deps.Session.State().IsLoggedIn})
		return
	}
	id, signedIn, lastError := s.deps.Status.Status()
	writeJSON(w, http.StatusOK, authStatusResponse{
		SignedIn:  signedIn,
		UserID:    id.UserID,
		Email:     id.Email,
		Name:      id.Name,
		Provider:  id.Provider,
		LastError: lastError,
	})
}

func (s *Server) handleEmailSignIn(w http.ResponseWriter, r *http.Request) {
	if !s.authAvailable(w) {
		return
	}
	var req emailSignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.deps.Auth.SignInWithEmailPassword(req.Email, req.Password)
	accepted(w)
}

func (s *Server) handleGoogleURL(w http.ResponseWriter, r *http.Request) {
	if !s.authAvailable(w) {
		return
	}
	u, err := s.deps.Auth.GoogleAuthURL()
	if errors.Is(err, auth.ErrGoogleDisabled) {
		writeError(w, http.StatusNotImplemented, err.Error())
		return
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.authAvailable(w) {
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, http.StatusBadRequest, "google sign-in was cancelled: "+sanitizeText(e))
		return
	}
	state, code := q.Get("state"), q.Get("code")
	if state == "" || code == "" {
		writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}
	s.deps.Auth.SignInWithGoogle(state, code)
	accepted(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	if !s.authAvailable(w) {
		return
	}
	s.deps.Auth.SignOut()
	accepted(w)
}

func (s *Server) handleSessionCheck(w http.ResponseWriter, _ *http.Request) {
	if !s.authAvailable(w) {
		return
	}
	s.deps.Auth.CheckCurrentSession()
	accepted(w)
}
