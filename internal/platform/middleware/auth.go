package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// StaffValidator defines the interface for validating staff access tokens.
type StaffValidator interface {
	ValidateToken(tokenString string) (*StaffClaims, error)
}

// StaffClaims represents the claims we expect from the token validator.
type StaffClaims struct {
	Subject string
	Role    string
}

// Context keys for storing authenticated staff information.
type contextKeyStaffSubject struct{}
type contextKeyStaffRole struct{}

var (
	ContextKeyStaffSubject = contextKeyStaffSubject{}
	ContextKeyStaffRole    = contextKeyStaffRole{}
)

// GetStaffSubject retrieves the authenticated staff subject from the context.
func GetStaffSubject(ctx context.Context) string {
	subject, ok := ctx.Value(ContextKeyStaffSubject).(string)
	if !ok {
		return ""
	}
	return subject
}

// GetStaffRole retrieves the authenticated staff role from the context.
func GetStaffRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyStaffRole).(string)
	if !ok {
		return ""
	}
	return role
}

// staffRoles lists the roles allowed through RequireStaff.
var staffRoles = map[string]bool{
	"staff": true,
	"admin": true,
}

// RequireStaff rejects requests that do not carry a valid bearer token with a
// staff or admin role. On success the subject and role land in the context.
func RequireStaff(validator StaffValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			if !staffRoles[claims.Role] {
				logger.WarnContext(ctx, "forbidden access - insufficient role",
					"role", claims.Role,
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"staff role required"}`))
				return
			}

			ctx = context.WithValue(ctx, ContextKeyStaffSubject, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyStaffRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
