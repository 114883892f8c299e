package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/models"
)

const (
	sessionCookie = "reminder_session"
	sessionMaxAge = 24 * time.Hour
)

// UserStore is the slice of the user repository the web layer needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type ctxKey int

const userIDKey ctxKey = 0

func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func hashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(hash), err
}

func verifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

func (s *Server) issueSession(w http.ResponseWriter, u *models.User) error {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(u.ID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionMaxAge)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// requireAuth validates the session cookie and puts the user id in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if _, err := s.users.GetByID(r.Context(), id); err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

// EnsureDefaultUsers seeds the built-in accounts on first boot so the web UI
// is reachable before any user management exists.
func EnsureDefaultUsers(ctx context.Context, users UserStore) error {
	defaults := []struct {
		username, password, timezone string
	}{
		{"admin", "admin123", "Europe/Rome"},
		{"partner", "partner123", "Europe/Rome"},
	}

	for _, d := range defaults {
		_, err := users.GetByUsername(ctx, d.username)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		hash, err := hashPassword(d.password)
		if err != nil {
			return err
		}
		u := &models.User{Username: d.username, PasswordHash: hash, Timezone: d.timezone}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		slog.Warn("created default account, change its password", "username", u.Username)
	}
	return nil
}
