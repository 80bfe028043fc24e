package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Authenticator is satisfied by *tokenauth.Engine.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*tokenauth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*tokenauth.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	GetSessionCount(ctx context.Context, userID string) (int, error)
	VerifyAccess(ctx context.Context, accessToken string) (*jwt.Payload, error)
	Health(ctx context.Context) (time.Duration, error)
}

// Options configures the router. Zero values fall back to the defaults
// noted on each field.
type Options struct {
	ServerName string
	Version    string
	// StartedAt is reported as runDate on GET /. Defaults to time.Now().
	StartedAt time.Time

	// CookieName defaults to "refreshToken".
	CookieName string
	// CookieMaxAge defaults to the seven day session lifetime.
	CookieMaxAge time.Duration
	// SecureCookie marks the refresh cookie Secure (production).
	SecureCookie bool

	// AllowedOrigins defaults to http://localhost:3000.
	AllowedOrigins []string

	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler

	Logger zerolog.Logger
}

const (
	defaultCookieName   = "refreshToken"
	defaultCookieMaxAge = 7 * 24 * time.Hour
	defaultOrigin       = "http://localhost:3000"
)

func (o Options) withDefaults() Options {
	if o.CookieName == "" {
		o.CookieName = defaultCookieName
	}
	if o.CookieMaxAge <= 0 {
		o.CookieMaxAge = defaultCookieMaxAge
	}
	if len(o.AllowedOrigins) == 0 {
		o.AllowedOrigins = []string{defaultOrigin}
	}
	if o.StartedAt.IsZero() {
		o.StartedAt = time.Now()
	}
	return o
}

type server struct {
	auth Authenticator
	opts Options
}

// NewRouter returns the full handler tree.
func NewRouter(auth Authenticator, opts Options) http.Handler {
	opts = opts.withDefaults()
	s := &server{auth: auth, opts: opts}

	r := chi.NewRouter()
	r.Use(
		hlog.NewHandler(opts.Logger),
		requestID,
		hlog.RemoteAddrHandler("ip"),
		hlog.AccessHandler(accessLog),
		chimw.Recoverer,
		cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler,
		clientMetadata,
	)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Get("/v1/ping", s.handlePing)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(auth))
			r.Post("/logout-all", s.handleLogoutAll)
			r.Get("/me", s.handleMe)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", codeNotFound)
	})
	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
