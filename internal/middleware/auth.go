// Package middleware содержит HTTP middleware сервиса.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"

	"github.com/mmeshcher/laundryhub/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// UserLookup загружает пользователя по идентификатору из токена.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// Claims содержит полезную нагрузку токена доступа.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// AuthMiddleware выпускает и проверяет токены доступа и прикрепляет пользователя к контексту запроса.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	users     UserLookup
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware. При пустом секрете генерируется случайный ключ,
// и токены перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string, ttl time.Duration, users UserLookup) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		users:     users,
		now:       time.Now,
	}
}

// IssueToken выпускает подписанный HS256 токен для пользователя.
func (a *AuthMiddleware) IssueToken(userID int64) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// ParseToken проверяет подпись и срок действия токена и возвращает идентификатор пользователя.
func (a *AuthMiddleware) ParseToken(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return 0, model.ErrUnauthenticated
	}
	return claims.UserID, nil
}

// Middleware требует заголовок Authorization: Bearer и добавляет пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		userID, err := a.ParseToken(tokenStr)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token is not valid")
			return
		}

		user, err := a.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Token is not valid")
				return
			}
			writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// RequireRole пропускает запрос, только если роль пользователя из контекста входит в roles.
// Должен стоять после Middleware.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}
			if !lo.Contains(roles, user.Role) {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// WithUser возвращает контекст с прикреплённым пользователем.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext извлекает пользователя из контекста запроса.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
