// Package http exposes the ledger to the shell over a JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"dailyledger/internal/advice"
	"dailyledger/internal/auth"
	"dailyledger/internal/core"
	"dailyledger/internal/log"
	"dailyledger/internal/middleware/ratelimit"
	"dailyledger/internal/middleware/security"
	"dailyledger/internal/report"
)

const maxBodyBytes = 4 << 10

// Session is the state owner the handlers talk to.
type Session interface {
	State() core.AppState
	Today() core.Day
	Location() *time.Location
	TodayTransactions() []core.Transaction
	TodayTotals() core.Totals
	LastSaveError() error
	CheckRollover(ctx context.Context) (bool, error)
	RecordIncome(ctx context.Context, amount decimal.Decimal) (core.Transaction, error)
	RecordTransaction(ctx context.Context, typ core.TransactionType, amount decimal.Decimal, note, personName string) (core.Transaction, error)
	UpdateIncomeDynamically(ctx context.Context) error
}

// Authenticator starts bridge operations. Outcomes arrive through the
// bridge's listener, never through these calls.
type Authenticator interface {
	GoogleAuthURL() (string, error)
	SignInWithGoogle(state, code string)
	SignInWithEmailPassword(email, password string)
	SignOut()
	CheckCurrentSession()
}

// AuthStatus reports the last known bridge outcome.
type AuthStatus interface {
	Status() (id auth.Identity, signedIn bool, lastError string)
}

// SnapshotStats counts snapshot writes. ok is false when the store keeps
// no count.
type SnapshotStats interface {
	Saves(ctx context.Context) (n int64, ok bool, err error)
}

type MirrorStats interface {
	Stats() (sent, failed int64)
}

type RolloverStatus interface {
	IsRunning() bool
}

type Advisor interface {
	Advise(ctx context.Context, txs []core.Transaction, today core.Day) advice.Result
}

// Deps are the collaborators of the handlers. Snapshots, Mirror and
// Rollover only feed /readyz and may be nil.
type Deps struct {
	Session   Session
	Auth      Authenticator
	Status    AuthStatus
	Reports   *report.Cache
	Advice    Advisor
	Snapshots SnapshotStats
	Mirror    MirrorStats
	Rollover  RolloverStatus
	Logger    *log.Logger
}

type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	RateLimit          ratelimit.Config
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger
}

func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Reports == nil {
		deps.Reports = report.NewCache(time.Minute)
	}
	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
		logger:   deps.Logger.WithComponent(log.ComponentHTTP),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

		r.Get("/state", s.handleState)
		r.Get("/transactions/today", s.handleTodayTransactions)
		r.Get("/reports/daily", s.handleDailyReport)
		r.Get("/reports/yearly", s.handleYearlyReport)
		r.Get("/advice", s.handleAdvice)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)
			r.Post("/income", s.handleRecordIncome)
			r.Post("/income/update", s.handleUpdateIncome)
			r.Post("/transactions", s.handleRecordTransaction)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", s.handleAuthStatus)
			r.Post("/email", s.handleEmailSignIn)
			r.Get("/google/url", s.handleGoogleURL)
			r.Get("/google/callback", s.handleGoogleCallback)
			r.Post("/logout", s.handleSignOut)
			r.Post("/session/check", s.handleSessionCheck)
		})
	})

	return r
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path,
	)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// requireLogin guards the mutating routes behind the login gate.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Session.State().IsLoggedIn {
			writeError(w, http.StatusForbidden, "sign in first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady fails while the last snapshot save failed or the rollover
// schedule is not running. The body also carries the persistence, mirror
// and report cache counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":             "ready",
		"reportCacheEntries": s.deps.Reports.Len(),
	}

	if s.deps.Snapshots != nil {
		n, ok, err := s.deps.Snapshots.Saves(r.Context())
		switch {
		case err != nil:
			log.FromContext(r.Context()).WarnContext(r.Context(), "Could not count snapshot saves", log.FieldError, err.Error())
		case ok:
			body["snapshotSaves"] = n
		}
	}
	if s.deps.Mirror != nil {
		sent, failed := s.deps.Mirror.Stats()
		body["mirror"] = map[string]int64{"sent": sent, "failed": failed}
	}
	if s.deps.Rollover != nil {
		running := s.deps.Rollover.IsRunning()
		body["rolloverRunning"] = running
		if !running {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["error"] = "rollover schedule not running"
		}
	}
	if err := s.deps.Session.LastSaveError(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	writeJSON(w, status, body)
}
