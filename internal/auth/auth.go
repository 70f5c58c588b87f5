// Package auth определяет текущего пользователя по cookie-сессии или
// bearer-токену и хранит его в контексте запроса.
package auth

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/UkralStul/ecosocial/internal/domain"
	"github.com/UkralStul/ecosocial/internal/storage"
)

const (
	CookieName     = "session_id"
	AdminKeyHeader = "X-Admin-Key"
)

// ErrBadCredentials не раскрывает, что именно неверно: почта или пароль.
var ErrBadCredentials = &domain.Error{Kind: domain.ErrUnauthenticated, Msg: "invalid email or password"}

type contextKey string

const userKey = contextKey("user")

// Authenticator создает сессии и распознает пользователя запроса.
type Authenticator struct {
	users        storage.Users
	tokens       *Tokens
	sessionTTL   time.Duration
	cookieSecure bool
	now          func() time.Time
}

func New(users storage.Users, tokens *Tokens, sessionTTL time.Duration, cookieSecure bool) *Authenticator {
	return &Authenticator{
		users:        users,
		tokens:       tokens,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Login создает серверную сессию, ставит cookie и возвращает bearer-токен.
func (a *Authenticator) Login(ctx context.Context, w http.ResponseWriter, user *domain.User) (string, error) {
	session := &domain.Session{UserID: user.ID, ExpiresAt: a.now().Add(a.sessionTTL)}
	if err := a.users.CreateSession(ctx, session); err != nil {
		return "", err
	}
	token, _, err := a.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

// Logout отзывает сессию из cookie и очищает ее.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := a.users.RevokeSession(r.Context(), c.Value); err != nil {
			log.Printf("[auth] revoke session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
	})
}

// Middleware кладет пользователя в контекст, если запрос аутентифицирован.
// Анонимные запросы проходят дальше без пользователя.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := a.resolve(r); user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) *domain.User {
	ctx := r.Context()

	// Сначала cookie-сессия
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if session, err := a.users.GetSession(ctx, c.Value); err == nil && session.Active(a.now()) {
			if user, err := a.users.GetUserByID(ctx, session.UserID); err == nil {
				return user
			}
		}
	}

	// Затем bearer-токен
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil
	}
	userID, err := a.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	user, err := a.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil
	}
	return user
}

func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFrom возвращает пользователя запроса, если он есть.
func UserFrom(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey).(*domain.User)
	return user, ok && user != nil
}

// AdminKey - повышенный ключ для административных операций.
// Пустой ключ отключает их.
type AdminKey string

// Valid сравнивает заголовок запроса с ключом за постоянное время.
func (k AdminKey) Valid(r *http.Request) bool {
	if k == "" {
		return false
	}
	got := r.Header.Get(AdminKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(k)) == 1
}
