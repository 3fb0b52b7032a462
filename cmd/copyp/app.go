package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maynagashev/copypasta/internal/client/api"
	"github.com/maynagashev/copypasta/models"
)

const (
	previewWidth       = 60
	watchRetryDelay    = 2 * time.Second
	watchMaxRetryDelay = 30 * time.Second
)

// ErrEmptyClipboard - на сервере еще ничего не скопировано.
var ErrEmptyClipboard = errors.New("буфер обмена пуст")

// app выполняет команды CLI поверх API клиента.
type app struct {
	client   api.Client
	clientID string
	out      io.Writer
	// Учетные данные для повторного входа, когда токен watch истекает.
	username string
	password string
	// retryDelay - начальная пауза перед переподключением watch.
	retryDelay time.Duration
}

// copy отправляет данные в буфер. Пустой typ означает автоопределение.
func (a *app) copy(ctx context.Context, data []byte, typ string) error {
	contentType := models.ContentType(typ)
	if typ == "" {
		contentType = detectContentType(data)
	}
	if !contentType.Valid() {
		return fmt.Errorf("неизвестный тип содержимого: %q", typ)
	}
	if contentType == models.ContentTypeFile {
		return errors.New("для файлов используйте --file=<path>")
	}

	version, err := a.client.Paste(ctx, models.PasteRequest{
		ContentType: contentType,
		Content:     string(data),
		ClientID:    optional(a.clientID),
	})
	if err != nil {
		return err
	}
	slog.Info("Содержимое скопировано", "type", contentType, "version", version)
	return nil
}

// copyFile отправляет файл как запись типа file, содержимое кодируется в base64.
func (a *app) copyFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла: %w", err)
	}
	name := filepath.Base(path)

	version, err := a.client.Paste(ctx, models.PasteRequest{
		ContentType: models.ContentTypeFile,
		Content:     base64.StdEncoding.EncodeToString(data),
		ClientID:    optional(a.clientID),
		Filename:    &name,
	})
	if err != nil {
		return err
	}
	slog.Info("Файл скопирован", "file", name, "size", len(data), "version", version)
	return nil
}

// paste печатает текущую запись без метаданных.
func (a *app) paste(ctx context.Context) error {
	entry, _, err := a.client.Current(ctx)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrEmptyClipboard
	}
	return a.writeEntry(entry)
}

// history печатает предыдущие записи, новые первыми.
func (a *app) history(ctx context.Context, limit int) error {
	entries, err := a.client.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err = fmt.Fprintln(a.out, "История пуста")
		return err
	}
	for _, e := range entries {
		if _, err = fmt.Fprintf(a.out, "%4d  %s  %-5s  %s\n",
			e.Version, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ContentType, preview(e, previewWidth)); err != nil {
			return err
		}
	}
	return nil
}

// watch печатает каждое новое изменение, переподключаясь при обрывах.
func (a *app) watch(ctx context.Context) error {
	_, since, err := a.client.Current(ctx)
	if err != nil {
		return err
	}
	slog.Info("Ожидание изменений", "version", since)

	base := a.retryDelay
	if base <= 0 {
		base = watchRetryDelay
	}
	delay := base
	relogged := false
	var outErr error
	for {
		err = a.client.Watch(ctx, since, a.clientID, func(msg models.PollResponse) error {
			delay = base
			relogged = false
			since = msg.Version
			if msg.Entry == nil {
				return nil
			}
			if outErr = a.writeEntry(msg.Entry); outErr == nil {
				_, outErr = fmt.Fprintln(a.out)
			}
			return outErr
		})
		switch {
		case ctx.Err() != nil:
			return nil
		case outErr != nil:
			return outErr
		case errors.Is(err, api.ErrAuthorization):
			if relogged {
				return err
			}
			relogged = true
			if err = a.relogin(ctx); err != nil {
				return err
			}
			continue
		}

		slog.Warn("Поток изменений прерван, переподключение", "error", err, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay = min(delay*2, watchMaxRetryDelay)
	}
}

// relogin получает новый токен взамен истекшего.
func (a *app) relogin(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := a.client.Login(ctx, a.username, a.password); err != nil {
		return fmt.Errorf("ошибка повторного входа: %w", err)
	}
	slog.Info("Токен обновлен", "user", a.username)
	return nil
}

// optional превращает пустую строку в отсутствующее поле запроса.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// writeEntry выводит содержимое; файлы декодируются обратно в байты.
func (a *app) writeEntry(entry *models.Entry) error {
	if entry.ContentType == models.ContentTypeFile {
		data, err := base64.StdEncoding.DecodeString(entry.Content)
		if err != nil {
			return fmt.Errorf("ошибка декодирования файла: %w", err)
		}
		_, err = a.out.Write(data)
		return err
	}
	_, err := io.WriteString(a.out, entry.Content)
	return err
}
