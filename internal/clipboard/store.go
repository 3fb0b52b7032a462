package clipboard

import (
	"context"
	"fmt"

	"github.com/maynagashev/copypasta/models"
)

// RingSize - максимальная длина кольца истории пользователя (вместе с текущей записью).
const RingSize = 10

// CommitRequest - данные новой записи буфера обмена.
type CommitRequest struct {
	ContentType models.ContentType
	Content     string
	Metadata    string
	ClientID    *string
	Filename    *string
}

// Validate проверяет инварианты, которые должен обеспечить вызывающий слой.
func (r CommitRequest) Validate() error {
	if r.Content == "" {
		return fmt.Errorf("%w: пустое содержимое", ErrInvalidInput)
	}
	if !r.ContentType.Valid() {
		return fmt.Errorf("%w: неизвестный тип содержимого %q", ErrInvalidInput, r.ContentType)
	}
	return nil
}

// Store - версионированное хранилище буфера обмена.
// Commit выполняется атомарно для одного пользователя; уведомление ожидающих
// отправляется только после того, как изменение стало видно читателям.
type Store interface {
	Commit(ctx context.Context, userID int64, req CommitRequest) (int64, error)
	// CurrentEntry возвращает nil, если пользователь еще ничего не записывал.
	CurrentEntry(ctx context.Context, userID int64) (*models.Entry, error)
	// History возвращает кольцо без головы, от новых к старым, не более limit записей.
	History(ctx context.Context, userID int64, limit int) ([]models.Entry, error)
	CurrentVersion(ctx context.Context, userID int64) (int64, error)
}

// sameContent - точное сравнение для дедупликации, без хешей.
func sameContent(e *models.Entry, req CommitRequest) bool {
	return e.ContentType == req.ContentType && e.Content == req.Content
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
