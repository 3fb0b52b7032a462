package repository

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/maynagashev/copypasta/models"
)

// memoryUserRepository хранит пользователей в памяти; используется без PostgreSQL.
type memoryUserRepository struct {
	users  *xsync.Map[string, models.User]
	nextID atomic.Int64
}

// NewMemoryUserRepository создает репозиторий пользователей в памяти процесса.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: xsync.NewMap[string, models.User]()}
}

func (r *memoryUserRepository) CreateUser(_ context.Context, user *models.User) (int64, error) {
	now := time.Now()
	created := models.User{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, loaded := r.users.LoadOrCompute(user.Username, func() (models.User, bool) {
		created.ID = r.nextID.Add(1)
		return created, false
	})
	if loaded {
		return 0, ErrUsernameTaken
	}

	log.Printf("[UserRepo] Пользователь '%s' создан в памяти с ID %d", user.Username, created.ID)
	return created.ID, nil
}

func (r *memoryUserRepository) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := r.users.Load(username)
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
