package models

import "time"

// ContentType - тип содержимого записи буфера обмена.
type ContentType string

// Допустимые типы содержимого.
const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
	ContentTypeRich  ContentType = "rich"
	ContentTypeFile  ContentType = "file"
)

// Valid проверяет, что тип входит в фиксированный набор.
func (t ContentType) Valid() bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeRich, ContentTypeFile:
		return true
	default:
		return false
	}
}

// Entry - одна запись буфера обмена.
// Порядок записей определяется Version, а не CreatedAt: время только информационное.
type Entry struct {
	ContentType ContentType `db:"content_type" json:"content_type"`
	// Для бинарных типов это самоописывающий закодированный блоб (например, data URL).
	Content   string    `db:"content" json:"content"`
	Metadata  string    `db:"metadata" json:"metadata"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Version   int64     `db:"version" json:"version"`
	ClientID  *string   `db:"client_id" json:"client_id,omitempty"` // Используется только для подавления эха
	Filename  *string   `db:"filename" json:"filename,omitempty"`   // Только для типа file
}

// Статусы ответов API.
const (
	StatusSuccess = "success"
	StatusTimeout = "timeout"
)

// PasteRequest - тело запроса на запись в буфер обмена.
type PasteRequest struct {
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
	Metadata    string      `json:"metadata,omitempty"`
	ClientID    *string     `json:"client_id,omitempty"`
	Filename    *string     `json:"filename,omitempty"`
}

// PasteResponse - ответ на успешную запись.
type PasteResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// ClipboardResponse - текущая запись пользователя (Entry == nil, если записей еще не было).
type ClipboardResponse struct {
	Status  string `json:"status"`
	Entry   *Entry `json:"entry"`
	Version int64  `json:"version"`
}

// HistoryResponse - история без текущей записи, от новых к старым.
type HistoryResponse struct {
	Status  string  `json:"status"`
	Entries []Entry `json:"entries"`
}

// VersionResponse - текущее значение счетчика версий пользователя.
type VersionResponse struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// PollResponse - результат long-poll ожидания (и сообщение websocket-потока).
type PollResponse struct {
	Status   string `json:"status"`
	Entry    *Entry `json:"entry,omitempty"`
	Version  int64  `json:"version"`
	TimedOut bool   `json:"timed_out"`
}

// BuildInfo описывает версию сборки сервера.
type BuildInfo struct {
	Version string `json:"version"`
	Numeric string `json:"numeric"`
}
