package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ballotbox/ballotbox/internal/auth"
	"github.com/ballotbox/ballotbox/internal/cache"
	"github.com/ballotbox/ballotbox/internal/metrics"
	"github.com/ballotbox/ballotbox/internal/model"
	"github.com/ballotbox/ballotbox/internal/repository"
)

const (
	// minAuthFailureDuration is the minimum time a failed authentication
	// takes, so response timing does not reveal which check tripped.
	minAuthFailureDuration = 200 * time.Millisecond
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Tokens     *auth.TokenManager
	Repository *repository.Repository
	Cache      *cache.Cache
	Metrics    metrics.Recorder
}

// Auth returns a middleware that authenticates API requests.
// It extracts the bearer token from the Authorization header, verifies
// the signature, resolves the account (cache first, database on miss),
// and injects the auth context into the request.
//
// The account record wins over the token: a token whose account has been
// deleted, or whose role no longer matches, is rejected even if its
// signature and expiry are still valid.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()

			raw := extractBearerToken(r)
			if raw == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w, startTime, "UNAUTHORIZED")
				return
			}

			claims, err := cfg.Tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					logAuthFailure(cfg.Logger, r, "expired_token")
					writeAuthError(w, startTime, "TOKEN_EXPIRED")
					return
				}
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeAuthError(w, startTime, "UNAUTHORIZED")
				return
			}

			// Check cache first
			cacheKey := auth.QuickHash(claims.Subject)
			account, _ := cfg.Cache.GetAccount(r.Context(), cacheKey)

			cacheHit := account != nil
			if cacheHit {
				cfg.Metrics.IncAuthCacheHit()
			} else {
				cfg.Metrics.IncAuthCacheMiss()

				user, err := cfg.Repository.GetUserByEmail(r.Context(), claims.Subject)
				if err != nil {
					if errors.Is(err, repository.ErrUserNotFound) {
						logAuthFailure(cfg.Logger, r, "unknown_account")
						writeAuthError(w, startTime, "UNAUTHORIZED")
						return
					}
					cfg.Logger.Error("database error during auth",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w, startTime, "UNAUTHORIZED")
					return
				}

				_ = cfg.Cache.SetAccount(r.Context(), cacheKey, user)
				account = &model.CachedAccount{
					UserID: user.ID,
					Email:  user.Email,
					Role:   string(user.Role),
				}
			}

			if account.UserID != claims.UserID || account.Role != claims.Role {
				logAuthFailure(cfg.Logger, r, "stale_token")
				writeAuthError(w, startTime, "UNAUTHORIZED")
				return
			}

			authCtx := &model.AuthContext{
				UserID: account.UserID,
				Email:  account.Email,
				Role:   model.Role(account.Role),
			}
			setAuthenticatedUser(r.Context(), authCtx.UserID, string(authCtx.Role))

			cfg.Logger.Info("authentication successful",
				slog.String("user_id", authCtx.UserID),
				slog.String("role", string(authCtx.Role)),
				slog.String("ip", r.RemoteAddr),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", cacheHit),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the access token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response after padding the
// elapsed time to minAuthFailureDuration. Expired tokens get their own
// code so clients know to refresh; everything else shares one message
// to prevent enumeration.
func writeAuthError(w http.ResponseWriter, startTime time.Time, code string) {
	if elapsed := time.Since(startTime); elapsed < minAuthFailureDuration {
		time.Sleep(minAuthFailureDuration - elapsed)
	}
	message := "Invalid or missing credentials"
	if code == "TOKEN_EXPIRED" {
		message = "Access token has expired"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":"%s","code":"%s"}`, message, code)))
}
