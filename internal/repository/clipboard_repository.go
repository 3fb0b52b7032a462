package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/models"
)

// ChangesChannel - канал LISTEN/NOTIFY, в который пишется ID пользователя после коммита.
const ChangesChannel = "clipboard_changes"

const (
	// Увеличивает счетчик и блокирует строку пользователя до конца транзакции.
	queryBumpVersion = `INSERT INTO clipboard_versions (user_id, version) VALUES ($1, 1)
	          ON CONFLICT (user_id) DO UPDATE SET version = clipboard_versions.version + 1
	          RETURNING version`
	queryFindDuplicate = `SELECT id FROM clipboard_entries
	          WHERE user_id=$1 AND content_type=$2 AND content=$3 LIMIT 1 FOR UPDATE`
	queryHeadVersion = `SELECT COALESCE(MAX(version), 0) FROM clipboard_entries WHERE user_id=$1`
	queryPromote     = `UPDATE clipboard_entries
	          SET version=$1, metadata=$2, client_id=$3, filename=$4, created_at=$5 WHERE id=$6`
	queryInsertEntry = `INSERT INTO clipboard_entries
	          (user_id, content_type, content, metadata, client_id, filename, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	queryTrim = `DELETE FROM clipboard_entries WHERE user_id=$1 AND id NOT IN
	          (SELECT id FROM clipboard_entries WHERE user_id=$1 ORDER BY version DESC LIMIT $2)`
	queryNotify = `SELECT pg_notify($1, $2)`

	queryCurrentEntry = `SELECT content_type, content, metadata, created_at, version, client_id, filename
	          FROM clipboard_entries WHERE user_id=$1 ORDER BY version DESC LIMIT 1`
	queryHistory = `SELECT content_type, content, metadata, created_at, version, client_id, filename
	          FROM clipboard_entries WHERE user_id=$1 ORDER BY version DESC OFFSET 1 LIMIT $2`
	queryCurrentVersion = `SELECT version FROM clipboard_versions WHERE user_id=$1`
)

// postgresClipboardRepository - долговременное хранилище буфера обмена.
// Весь коммит (версия, дедупликация, вставка, обрезка, NOTIFY) - одна транзакция.
type postgresClipboardRepository struct {
	db       *sqlx.DB
	notifier *clipboard.Notifier
	now      func() time.Time
}

// NewPostgresClipboardRepository создает хранилище буфера обмена в PostgreSQL.
// После успешного коммита локальный notifier будится сразу, другие процессы - через NOTIFY.
func NewPostgresClipboardRepository(db *sqlx.DB, notifier *clipboard.Notifier) clipboard.Store {
	return &postgresClipboardRepository{db: db, notifier: notifier, now: time.Now}
}

func (r *postgresClipboardRepository) Commit(
	ctx context.Context,
	userID int64,
	req clipboard.CommitRequest,
) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, storageError(ctx, "начало транзакции", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("[ClipboardRepo] Ошибка отката транзакции пользователя %d: %v", userID, rbErr)
		}
	}()

	var version int64
	if err = tx.QueryRowxContext(ctx, queryBumpVersion, userID).Scan(&version); err != nil {
		return 0, storageError(ctx, "увеличение версии", err)
	}

	var matchID int64
	promoted := true
	err = tx.GetContext(ctx, &matchID, queryFindDuplicate, userID, string(req.ContentType), req.Content)
	if errors.Is(err, sql.ErrNoRows) {
		promoted = false
	} else if err != nil {
		return 0, storageError(ctx, "поиск дубликата", err)
	}

	var head int64
	if err = tx.GetContext(ctx, &head, queryHeadVersion, userID); err != nil {
		return 0, storageError(ctx, "чтение версии головы", err)
	}
	if head >= version {
		log.Printf("[ClipboardRepo] Версия головы %d не меньше новой версии %d у пользователя %d", head, version, userID)
		return 0, fmt.Errorf("%w: версия головы %d, новая версия %d", clipboard.ErrConcurrencyViolation, head, version)
	}

	now := r.now()
	if promoted {
		_, err = tx.ExecContext(ctx, queryPromote, version, req.Metadata, req.ClientID, req.Filename, now, matchID)
	} else {
		_, err = tx.ExecContext(ctx, queryInsertEntry, userID, string(req.ContentType), req.Content,
			req.Metadata, req.ClientID, req.Filename, version, now)
	}
	if err != nil {
		return 0, storageError(ctx, "запись элемента", err)
	}

	if _, err = tx.ExecContext(ctx, queryTrim, userID, clipboard.RingSize); err != nil {
		return 0, storageError(ctx, "обрезка истории", err)
	}
	if _, err = tx.ExecContext(ctx, queryNotify, ChangesChannel, strconv.FormatInt(userID, 10)); err != nil {
		return 0, storageError(ctx, "отправка уведомления", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, storageError(ctx, "фиксация транзакции", err)
	}

	clipboard.ObserveCommit(promoted)
	r.notifier.Signal(userID)
	return version, nil
}

func (r *postgresClipboardRepository) CurrentEntry(ctx context.Context, userID int64) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.GetContext(ctx, &entry, queryCurrentEntry, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(ctx, "чтение текущей записи", err)
	}
	return &entry, nil
}

func (r *postgresClipboardRepository) History(ctx context.Context, userID int64, limit int) ([]models.Entry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: отрицательный лимит %d", clipboard.ErrInvalidInput, limit)
	}
	entries := []models.Entry{}
	if err := r.db.SelectContext(ctx, &entries, queryHistory, userID, limit); err != nil {
		return nil, storageError(ctx, "чтение истории", err)
	}
	return entries, nil
}

func (r *postgresClipboardRepository) CurrentVersion(ctx context.Context, userID int64) (int64, error) {
	var version int64
	err := r.db.GetContext(ctx, &version, queryCurrentVersion, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageError(ctx, "чтение версии", err)
	}
	return version, nil
}

// storageError отделяет отмену запроса от недоступности хранилища.
func storageError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	log.Printf("[ClipboardRepo] Ошибка БД (%s): %v", op, err)
	return fmt.Errorf("%w: %s: %w", clipboard.ErrStorageUnavailable, op, err)
}
