package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/maynagashev/copypasta/models"
)

// detectContentType считает данные картинкой, если это валидный base64 с image/* внутри.
func detectContentType(data []byte) models.ContentType {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.ContentTypeText
	}

	decoded, err := base64.StdEncoding.DecodeString(stripWhitespace(string(trimmed)))
	if err != nil || len(decoded) == 0 {
		return models.ContentTypeText
	}
	if strings.HasPrefix(http.DetectContentType(decoded), "image/") {
		return models.ContentTypeImage
	}
	return models.ContentTypeText
}

// stripWhitespace убирает переносы строк, которые вставляет base64 -w 76.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

// preview возвращает однострочное начало записи для списка истории.
func preview(entry models.Entry, limit int) string {
	switch entry.ContentType {
	case models.ContentTypeImage:
		return "[картинка]"
	case models.ContentTypeFile:
		name := "без имени"
		if entry.Filename != nil {
			name = *entry.Filename
		}
		return "[файл " + name + "]"
	}

	line := strings.Join(strings.Fields(entry.Content), " ")
	runes := []rune(line)
	if len(runes) > limit {
		return string(runes[:limit]) + "…"
	}
	return line
}
