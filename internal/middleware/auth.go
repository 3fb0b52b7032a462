package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/maynagashev/copypasta/internal/token"
)

// Тип для ключа контекста.
type contextKey string

// UserIDKey - ключ ID пользователя в контексте запроса.
const UserIDKey contextKey = "userID"

// AccessTokenParam - параметр запроса с токеном для клиентов, которые не могут
// передать заголовок (websocket из браузера).
const AccessTokenParam = "access_token"

// Authenticator проверяет JWT из заголовка Authorization (или параметра access_token)
// и кладет ID пользователя в контекст.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				rejectMissing(w, r, tokenString)
				return
			}

			userID, err := token.Parse(secret, tokenString)
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка проверки токена: %v", err)
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken возвращает токен; при ошибке формата - исходный заголовок и false.
func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if q := r.URL.Query().Get(AccessTokenParam); q != "" {
			return q, true
		}
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return authHeader, false
	}
	return parts[1], true
}

func rejectMissing(w http.ResponseWriter, r *http.Request, header string) {
	if header == "" {
		log.Printf("[AuthMiddleware] Нет токена в запросе %s", r.URL.Path)
		http.Error(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}
	log.Printf("[AuthMiddleware] Неверный формат заголовка Authorization")
	http.Error(w, "Неверный формат токена", http.StatusUnauthorized)
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
