package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// CallerHeader carries the caller email when no token secret is configured.
// The hosting proxy is trusted to set it.
const CallerHeader = "X-Caller-Email"

var errUnexpectedSigningMethod = errors.New("unexpected signing method")

// CallerClaims is the JWT payload identifying a caller.
type CallerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier returns a verifier for secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Issue signs a token for email that expires after ttl.
func (v *TokenVerifier) Issue(email string, ttl time.Duration, now time.Time) (string, error) {
	claims := CallerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses token and returns the email claim.
func (v *TokenVerifier) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &CallerClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*CallerClaims)
	if !ok || !parsed.Valid {
		return "", errInvalidToken
	}
	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return "", errInvalidToken
	}
	return email, nil
}

// Identify attaches the caller email to the request context. With a verifier
// the email comes from a bearer token and a bad token is rejected with 401.
// Without one the CallerHeader is trusted. No identity means anonymous.
func Identify(verifier *TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var caller string
			if verifier != nil {
				token := bearerToken(r)
				if token != "" {
					email, err := verifier.Verify(token)
					if err != nil {
						responder.loggerFor(r.Context()).WarnContext(r.Context(), "bearer token rejected", "error", err)
						responder.writeError(r.Context(), w, http.StatusUnauthorized, kindUnauthenticated, errInvalidToken)
						return
					}
					caller = email
				}
			} else {
				caller = strings.TrimSpace(r.Header.Get(CallerHeader))
			}

			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// RequestLogger attaches a request scoped logger and logs start and completion.
// It expects chi's RequestID middleware to run first.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", chimiddleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", ww.Status(), "duration", time.Since(start))
		})
	}
}
