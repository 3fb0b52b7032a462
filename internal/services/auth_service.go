package services

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/copypasta/internal/repository"
	"github.com/maynagashev/copypasta/internal/token"
	"github.com/maynagashev/copypasta/models"
)

// AuthService регистрирует пользователей и выдает токены доступа.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error) // Возвращает JWT токен
	// EnsureUser создает пользователя, если его еще нет (учетная запись из конфигурации).
	EnsureUser(ctx context.Context, username, password string) error
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUsernameTaken      = errors.New("имя пользователя уже занято")
	ErrEmptyCredentials   = errors.New("имя пользователя и пароль обязательны")
)

var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

// NewAuthService создает сервис аутентификации. tokenTTL <= 0 означает token.DefaultTTL.
func NewAuthService(userRepo repository.UserRepository, secret []byte, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = token.DefaultTTL
	}
	return &authService{userRepo: userRepo, secret: secret, tokenTTL: tokenTTL}
}

func (s *authService) Register(ctx context.Context, username, password string) error {
	if (models.Credentials{Username: username, Password: password}).Empty() {
		return ErrEmptyCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AuthService] Ошибка хеширования пароля для '%s': %v", username, err)
		return errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	_, err = s.userRepo.CreateUser(ctx, &models.User{Username: username, PasswordHash: string(hashed)})
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			return ErrUsernameTaken
		}
		log.Printf("[AuthService] Ошибка репозитория при регистрации '%s': %v", username, err)
		return errors.New("внутренняя ошибка сервера при создании пользователя")
	}

	log.Printf("[AuthService] Пользователь '%s' зарегистрирован", username)
	return nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			return "", ErrInvalidCredentials
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", username, err)
		return "", errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("[AuthService] Неверный пароль для пользователя: %s", username)
		return "", ErrInvalidCredentials
	}

	signed, err := token.Issue(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return "", errors.New("внутренняя ошибка сервера при генерации токена")
	}
	return signed, nil
}

func (s *authService) EnsureUser(ctx context.Context, username, password string) error {
	err := s.Register(ctx, username, password)
	if errors.Is(err, ErrUsernameTaken) {
		log.Printf("[AuthService] Пользователь '%s' уже существует", username)
		return nil
	}
	return err
}
