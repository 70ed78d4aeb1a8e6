package httphandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"golang.org/x/time/rate"
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, _ := strings.Cut(r.Header.Get("Content-Type"), ";")
		if strings.TrimSpace(mediaType) != "application/json" {
			writeMessage(w, http.StatusUnsupportedMediaType, "invalid media type")
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

type userCtxKey struct{}

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFrom returns the signed-in user resolved by [Authenticator].
func UserFrom(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(domain.User)
	return u, ok
}

type AuthConfig struct {
	// HS256 shared secret.
	Secret string
	// PEM encoded RS256 public key; takes precedence over Secret.
	PublicKeyPEM string
	Issuer       string
}

var (
	errNoToken      = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// An Authenticator verifies bearer tokens issued by the auth provider
// and resolves the token subject to a local user.
type Authenticator struct {
	users   port.UserManager
	keyFn   jwt.Keyfunc
	methods []string
	issuer  string
}

func NewAuthenticator(cfg AuthConfig, users port.UserManager) (Authenticator, error) {
	const op = "NewAuthenticator"

	a := Authenticator{users: users, issuer: cfg.Issuer}

	switch {
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return Authenticator{}, fmt.Errorf("%s: %w", op, err)
		}
		a.keyFn = func(*jwt.Token) (any, error) { return key, nil }
		a.methods = []string{jwt.SigningMethodRS256.Alg()}
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		a.keyFn = func(*jwt.Token) (any, error) { return secret, nil }
		a.methods = []string{jwt.SigningMethodHS256.Alg()}
	default:
		return Authenticator{}, fmt.Errorf("%s: no signing key configured", op)
	}
	return a, nil
}

func (a Authenticator) authenticate(r *http.Request) (domain.User, error) {
	const op = "Authenticator.authenticate"

	header := r.Header.Get("Authorization")
	if header == "" {
		return domain.User{}, errNoToken
	}
	scheme, tokenStr, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return domain.User{}, errInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(a.methods), jwt.WithExpirationRequired()}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(tokenStr), &claims, a.keyFn, opts...)
	if err != nil || claims.Subject == "" {
		return domain.User{}, errInvalidToken
	}

	u, err := a.users.UserByExternalID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, errInvalidToken
		}
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Required rejects requests without a valid bearer token.
func (a Authenticator) Required(next http.Handler) http.Handler {
	const op = "Authenticator.Required"
	log := slog.With("op", op)

	hf := func(w http.ResponseWriter, r *http.Request) {
		u, err := a.authenticate(r)
		if err != nil {
			if errors.Is(err, errNoToken) || errors.Is(err, errInvalidToken) {
				writeMessage(w, http.StatusUnauthorized, err.Error())
				return
			}
			log.Error("failed to resolve user", "err", err)
			writeMessage(w, http.StatusInternalServerError, "internal error")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u)))
	}
	return http.HandlerFunc(hf)
}

// Optional attaches the user when a valid token is present and lets
// anonymous requests through. An invalid token is still rejected.
func (a Authenticator) Optional(next http.Handler) http.Handler {
	const op = "Authenticator.Optional"
	log := slog.With("op", op)

	hf := func(w http.ResponseWriter, r *http.Request) {
		u, err := a.authenticate(r)
		switch {
		case err == nil:
			r = r.WithContext(withUser(r.Context(), u))
		case errors.Is(err, errNoToken):
		case errors.Is(err, errInvalidToken):
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		default:
			log.Error("failed to resolve user", "err", err)
			writeMessage(w, http.StatusInternalServerError, "internal error")
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// RequireAdmin must be chained after [Authenticator.Required].
func RequireAdmin(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFrom(r.Context())
		if !ok {
			writeMessage(w, http.StatusUnauthorized, errNoToken.Error())
			return
		}
		if u.Role != domain.RoleAdmin {
			writeMessage(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

type RateConfig struct {
	RPS   float64
	Burst int
	// Limiters idle longer than TTL are dropped.
	TTL time.Duration
}

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// An IPRateLimiter throttles requests per client address.
type IPRateLimiter struct {
	cfg      RateConfig
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	now      func() time.Time
}

func NewIPRateLimiter(cfg RateConfig) *IPRateLimiter {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &IPRateLimiter{
		cfg:      cfg,
		limiters: make(map[string]*ipLimiter),
		now:      time.Now,
	}
}

func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	il, ok := l.limiters[ip]
	if !ok {
		il = &ipLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst),
		}
		l.limiters[ip] = il
	}
	il.last = now
	return il.limiter.AllowN(now, 1)
}

// Cleanup drops idle limiters every interval until ctx is done.
func (l *IPRateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.sweep()
		}
	}
}

func (l *IPRateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, il := range l.limiters {
		if now.Sub(il.last) > l.cfg.TTL {
			delete(l.limiters, ip)
		}
	}
}

func (l *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(remoteIP(r)) {
			writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// remoteIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
