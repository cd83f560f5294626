package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/habitloop/habit-api/internal/auth"
	"github.com/habitloop/habit-api/internal/database"
	"github.com/habitloop/habit-api/internal/request"
)

// Auth creates authentication middleware that validates bearer tokens
// and loads the user they identify into the request context.
func Auth(tokens *auth.TokenManager, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header", logger)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format", logger)
				return
			}

			userID, err := tokens.Verify(parts[1])
			if err != nil {
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token", logger)
					return
				}
				logger.Error("failed_to_load_user", zap.Error(err))
				respondAuthError(w, http.StatusInternalServerError, "Database error", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": message}); err != nil {
		logger.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
