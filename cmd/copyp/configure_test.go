package main

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/copypasta/internal/client/config"
)

func scriptedPrompter(answers string) *prompter {
	return &prompter{in: bufio.NewReader(strings.NewReader(answers)), out: new(bytes.Buffer)}
}

func TestConfigure(t *testing.T) {
	t.Run("Первичная настройка", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.FileName)

		cfg, err := configure(scriptedPrompter("https://clip.example.com/\nanna\nsecret\n"), path, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://clip.example.com", cfg.ServerURL, "слэш в конце убирается")
		assert.NotEmpty(t, cfg.ClientID)

		saved, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, saved)
	})

	t.Run("Пустые ответы сохраняют текущие значения", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.FileName)
		current := &config.Config{ServerURL: "http://old", Username: "anna", Password: "old", ClientID: "device-1"}

		p := scriptedPrompter("\n\n\n")
		p.readPassword = func() (string, error) { return "", nil }
		cfg, err := configure(p, path, current)
		require.NoError(t, err)
		assert.Equal(t, *current, *cfg)
	})

	t.Run("Без URL настройка не сохраняется", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), config.FileName)

		_, err := configure(scriptedPrompter("\nanna\nsecret\n"), path, nil)
		require.Error(t, err)
		_, err = config.Load(path)
		require.ErrorIs(t, err, config.ErrNotConfigured)
	})
}
