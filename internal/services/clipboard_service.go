package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/models"
)

const (
	// DefaultMaxContentBytes - предел размера содержимого одной записи.
	DefaultMaxContentBytes = 16 << 20

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
	DefaultPollTimeout  = 30
)

// Кастомные ошибки сервиса буфера обмена.
var (
	ErrInvalidInput    = fmt.Errorf("сервис: %w", clipboard.ErrInvalidInput)
	ErrContentTooLarge = errors.New("содержимое превышает допустимый размер")
)

// ClipboardService проверяет входные данные и передает их ядру буфера обмена.
type ClipboardService interface {
	Paste(ctx context.Context, userID int64, req models.PasteRequest) (int64, error)
	Current(ctx context.Context, userID int64) (*models.Entry, int64, error)
	History(ctx context.Context, userID int64, limit int) ([]models.Entry, error)
	Version(ctx context.Context, userID int64) (int64, error)
	Poll(ctx context.Context, userID, since int64, timeoutSeconds int, clientID string) (*clipboard.WaitResult, error)
}

var _ ClipboardService = (*clipboardService)(nil)

type clipboardService struct {
	store           clipboard.Store
	poller          *clipboard.LongPoller
	maxContentBytes int
}

// NewClipboardService создает сервис. maxContentBytes <= 0 означает DefaultMaxContentBytes.
func NewClipboardService(store clipboard.Store, poller *clipboard.LongPoller, maxContentBytes int) ClipboardService {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	return &clipboardService{store: store, poller: poller, maxContentBytes: maxContentBytes}
}

func (s *clipboardService) Paste(ctx context.Context, userID int64, req models.PasteRequest) (int64, error) {
	if req.Content == "" {
		return 0, fmt.Errorf("%w: пустое содержимое", ErrInvalidInput)
	}
	if !req.ContentType.Valid() {
		return 0, fmt.Errorf("%w: неизвестный тип содержимого %q", ErrInvalidInput, req.ContentType)
	}
	if len(req.Content) > s.maxContentBytes {
		return 0, fmt.Errorf("%w: %d байт при пределе %d", ErrContentTooLarge, len(req.Content), s.maxContentBytes)
	}

	commit := clipboard.CommitRequest{
		ContentType: req.ContentType,
		Content:     req.Content,
		Metadata:    req.Metadata,
		ClientID:    nonEmpty(req.ClientID),
	}
	// Имя файла имеет смысл только для файлов
	if req.ContentType == models.ContentTypeFile {
		commit.Filename = nonEmpty(req.Filename)
	}

	version, err := s.store.Commit(ctx, userID, commit)
	if err != nil {
		log.Printf("[ClipboardService] Ошибка записи для пользователя %d: %v", userID, err)
		return 0, err
	}
	return version, nil
}

func (s *clipboardService) Current(ctx context.Context, userID int64) (*models.Entry, int64, error) {
	// Версию читаем первой: запись может оказаться новее, но не старше ее
	version, err := s.store.CurrentVersion(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	entry, err := s.store.CurrentEntry(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if entry != nil && entry.Version > version {
		version = entry.Version
	}
	return entry, version, nil
}

func (s *clipboardService) History(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	return s.store.History(ctx, userID, ClampHistoryLimit(limit))
}

func (s *clipboardService) Version(ctx context.Context, userID int64) (int64, error) {
	return s.store.CurrentVersion(ctx, userID)
}

func (s *clipboardService) Poll(
	ctx context.Context,
	userID, since int64,
	timeoutSeconds int,
	clientID string,
) (*clipboard.WaitResult, error) {
	if since < 0 {
		return nil, fmt.Errorf("%w: отрицательная версия %d", ErrInvalidInput, since)
	}
	return s.poller.WaitForChange(ctx, userID, since, timeoutSeconds, clientID)
}

// ClampHistoryLimit приводит лимит истории к [1, 50]; 0 означает значение по умолчанию.
func ClampHistoryLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultHistoryLimit
	case limit < 1:
		return 1
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
