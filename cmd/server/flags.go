package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/maynagashev/copypasta/internal/clipboard"
	"github.com/maynagashev/copypasta/internal/services"
	"github.com/maynagashev/copypasta/internal/storage"
)

const (
	// Порт по умолчанию для HTTP(S) (непривилегированный).
	defaultServerPort  = "8443"
	defaultMinioBucket = "copypasta-snapshots"

	// Переменные окружения.
	envServerPort       = "SERVER_PORT"
	envTLSCertFile      = "TLS_CERT_FILE"
	envTLSKeyFile       = "TLS_KEY_FILE"
	envDatabaseDSN      = "DATABASE_DSN"
	envJWTSecret        = "JWT_SECRET" //nolint:gosec // Имя переменной окружения, а не секрет
	envAppUsername      = "APP_USERNAME"
	envAppPassword      = "APP_PASSWORD" //nolint:gosec // Имя переменной окружения, а не пароль
	envMinioEndpoint    = "MINIO_ENDPOINT"
	envMinioUser        = "MINIO_USER"
	envMinioPassword    = "MINIO_PASSWORD" //nolint:gosec // Имя переменной окружения, а не пароль
	envMinioBucket      = "MINIO_BUCKET"
	envMinioUseSSL      = "MINIO_USE_SSL"
	envSnapshotInterval = "SNAPSHOT_INTERVAL"
	envMaxContentBytes  = "MAX_CONTENT_BYTES"
	envMaxWaiters       = "MAX_WAITERS"
)

// config хранит конфигурацию сервера.
type config struct {
	Port        string
	CertFile    string
	KeyFile     string
	DatabaseDSN string
	JWTSecret   string

	// Учетная запись, создаваемая при старте.
	Username string
	Password string

	MinioEndpoint    string
	MinioUser        string
	MinioPassword    string
	MinioBucket      string
	MinioUseSSL      bool
	SnapshotInterval time.Duration

	MaxContentBytes int
	MaxWaiters      int64
}

// TLSEnabled сообщает, что заданы сертификат и ключ.
func (c *config) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// rawFlags - значения флагов до применения окружения и разбора чисел.
type rawFlags struct {
	port, certFile, keyFile, databaseDSN, jwtSecret       string
	username, password                                    string
	minioEndpoint, minioUser, minioPassword, minioBucket  string
	minioUseSSL, snapshotInterval, maxContent, maxWaiters string
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаги имеют приоритет над окружением.
func parseFlags() (*config, error) {
	raw := rawFlags{}

	flag.StringVar(&raw.port, "port", "",
		fmt.Sprintf("Порт сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&raw.certFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата, без него сервер работает по HTTP (env: %s)", envTLSCertFile))
	flag.StringVar(&raw.keyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	flag.StringVar(&raw.databaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к PostgreSQL, пустая - хранение в памяти (env: %s)", envDatabaseDSN))
	flag.StringVar(&raw.jwtSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет для подписи JWT (env: %s)", envJWTSecret))
	flag.StringVar(&raw.username, "username", "",
		fmt.Sprintf("Пользователь, создаваемый при старте (env: %s)", envAppUsername))
	flag.StringVar(&raw.password, "password", "",
		fmt.Sprintf("Пароль пользователя, создаваемого при старте (env: %s)", envAppPassword))
	flag.StringVar(&raw.minioEndpoint, "minio-endpoint", "",
		fmt.Sprintf("Адрес MinIO для снимков буфера в памяти (env: %s)", envMinioEndpoint))
	flag.StringVar(&raw.minioUser, "minio-user", "", fmt.Sprintf("Пользователь MinIO (env: %s)", envMinioUser))
	flag.StringVar(&raw.minioPassword, "minio-password", "", fmt.Sprintf("Пароль MinIO (env: %s)", envMinioPassword))
	flag.StringVar(&raw.minioBucket, "minio-bucket", "",
		fmt.Sprintf("Бакет для снимков (env: %s, default: %s)", envMinioBucket, defaultMinioBucket))
	flag.StringVar(&raw.minioUseSSL, "minio-use-ssl", "", fmt.Sprintf("Подключаться к MinIO по TLS (env: %s)", envMinioUseSSL))
	flag.StringVar(&raw.snapshotInterval, "snapshot-interval", "",
		fmt.Sprintf("Интервал снимков (env: %s, default: %s)", envSnapshotInterval, storage.DefaultSnapshotInterval))
	flag.StringVar(&raw.maxContent, "max-content-bytes", "",
		fmt.Sprintf("Максимальный размер записи (env: %s, default: %d)", envMaxContentBytes, services.DefaultMaxContentBytes))
	flag.StringVar(&raw.maxWaiters, "max-waiters", "",
		fmt.Sprintf("Максимум одновременных ожиданий (env: %s, default: %d)", envMaxWaiters, clipboard.DefaultMaxWaiters))

	flag.Parse()

	cfg := &config{
		Port:          valueOrEnv(raw.port, envServerPort, defaultServerPort),
		CertFile:      valueOrEnv(raw.certFile, envTLSCertFile, ""),
		KeyFile:       valueOrEnv(raw.keyFile, envTLSKeyFile, ""),
		DatabaseDSN:   valueOrEnv(raw.databaseDSN, envDatabaseDSN, ""),
		JWTSecret:     valueOrEnv(raw.jwtSecret, envJWTSecret, ""),
		Username:      valueOrEnv(raw.username, envAppUsername, ""),
		Password:      valueOrEnv(raw.password, envAppPassword, ""),
		MinioEndpoint: valueOrEnv(raw.minioEndpoint, envMinioEndpoint, ""),
		MinioUser:     valueOrEnv(raw.minioUser, envMinioUser, ""),
		MinioPassword: valueOrEnv(raw.minioPassword, envMinioPassword, ""),
		MinioBucket:   valueOrEnv(raw.minioBucket, envMinioBucket, defaultMinioBucket),
	}

	var err error
	if cfg.MinioUseSSL, err = parseBool(valueOrEnv(raw.minioUseSSL, envMinioUseSSL, "false"), envMinioUseSSL); err != nil {
		return nil, err
	}
	interval := valueOrEnv(raw.snapshotInterval, envSnapshotInterval, storage.DefaultSnapshotInterval.String())
	if cfg.SnapshotInterval, err = time.ParseDuration(interval); err != nil || cfg.SnapshotInterval <= 0 {
		return nil, fmt.Errorf("некорректный интервал снимков %q (%s)", interval, envSnapshotInterval)
	}
	maxContent := valueOrEnv(raw.maxContent, envMaxContentBytes, strconv.Itoa(services.DefaultMaxContentBytes))
	if cfg.MaxContentBytes, err = strconv.Atoi(maxContent); err != nil || cfg.MaxContentBytes <= 0 {
		return nil, fmt.Errorf("некорректный максимальный размер записи %q (%s)", maxContent, envMaxContentBytes)
	}
	maxWaiters := valueOrEnv(raw.maxWaiters, envMaxWaiters, strconv.Itoa(clipboard.DefaultMaxWaiters))
	if cfg.MaxWaiters, err = strconv.ParseInt(maxWaiters, 10, 64); err != nil || cfg.MaxWaiters <= 0 {
		return nil, fmt.Errorf("некорректное число ожиданий %q (%s)", maxWaiters, envMaxWaiters)
	}

	// Проверяем обязательные и связанные параметры
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан секрет для JWT (--jwt-secret или " + envJWTSecret + ")")
	}
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("сертификат и ключ TLS задаются вместе (" + envTLSCertFile + " и " + envTLSKeyFile + ")")
	}
	if (cfg.Username == "") != (cfg.Password == "") {
		return nil, errors.New("имя и пароль пользователя задаются вместе (" + envAppUsername + " и " + envAppPassword + ")")
	}

	return cfg, nil
}

// valueOrEnv возвращает значение флага, затем переменной окружения, затем значение по умолчанию.
func valueOrEnv(flagValue, envKey, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if value, ok := os.LookupEnv(envKey); ok && value != "" {
		return value
	}
	return fallback
}

func parseBool(value, name string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение %q (%s)", value, name)
	}
	return b, nil
}
