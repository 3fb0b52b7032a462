// Package config читает и сохраняет настройки CLI в INI файле ~/.config/copyp.rc.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const (
	// FileName - имя файла конфигурации в ~/.config.
	FileName = "copyp.rc"

	filePerm = 0o600
	dirPerm  = 0o700

	keyURL      = "server.url"
	keyUsername = "server.username"
	keyPassword = "server.password" //nolint:gosec // Имя ключа, а не пароль
	keyClientID = "server.client_id"
)

// ErrNotConfigured - файла конфигурации еще нет.
var ErrNotConfigured = errors.New("клиент не настроен, выполните 'copyp configure'")

// Config - настройки подключения к серверу.
type Config struct {
	ServerURL string
	Username  string
	Password  string
	// ClientID отличает это устройство, чтобы не получать обратно собственные копирования.
	ClientID string
}

// DefaultPath возвращает путь ~/.config/copyp.rc.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("не удалось определить домашний каталог: %w", err)
	}
	return filepath.Join(home, ".config", FileName), nil
}

// Validate проверяет, что заданы все параметры подключения.
func (c *Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return errors.New("не указан URL сервера")
	case c.Username == "":
		return errors.New("не указано имя пользователя")
	case c.Password == "":
		return errors.New("не указан пароль")
	}
	return nil
}

// Load читает конфигурацию. Если client_id еще не назначен, генерирует его и сохраняет файл.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotConfigured
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации %s: %w", path, err)
	}

	cfg := &Config{
		ServerURL: v.GetString(keyURL),
		Username:  v.GetString(keyUsername),
		Password:  v.GetString(keyPassword),
		ClientID:  v.GetString(keyClientID),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save записывает конфигурацию под файловой блокировкой с правами 0600.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("ошибка создания каталога конфигурации: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("ошибка блокировки конфигурации: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	v := viper.New()
	v.SetConfigType("ini")
	v.SetConfigPermissions(filePerm)
	v.Set(keyURL, cfg.ServerURL)
	v.Set(keyUsername, cfg.Username)
	v.Set(keyPassword, cfg.Password)
	v.Set(keyClientID, cfg.ClientID)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("ошибка записи конфигурации %s: %w", path, err)
	}

	// Права при создании не применяются к уже существующему файлу
	if err := os.Chmod(path, filePerm); err != nil {
		return fmt.Errorf("ошибка установки прав на конфигурацию: %w", err)
	}
	return nil
}
