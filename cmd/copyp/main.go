package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/maynagashev/copypasta/internal/client/api"
	"github.com/maynagashev/copypasta/internal/client/config"
	"github.com/maynagashev/copypasta/internal/version"
)

const (
	// Переменная окружения для пути к конфигурации (по умолчанию ~/.config/copyp.rc).
	configPathEnvVar = "COPYP_CONFIG"

	requestTimeout = 30 * time.Second
)

const usage = `CopyPasta: общий буфер обмена через сервер.

Без команды: если на stdin есть данные, они копируются, иначе печатается текущий буфер.

Usage:
    copyp [-v]
    copyp copy [-v] [--type=<t>] [--file=<path>]
    copyp paste [-v]
    copyp history [-v] [--limit=<n>]
    copyp watch [-v]
    copyp configure [-v]
    copyp -h | --help
    copyp --version

Options:
    -h --help        Показать справку.
    --version        Показать версию.
    -v --verbose     Писать подробный лог в stderr.
    --type=<t>       Тип содержимого: text, image, rich (по умолчанию определяется автоматически).
    --file=<path>    Скопировать файл.
    --limit=<n>      Сколько записей истории показать [default: 10].`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version.String())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	verbose, _ := opts.Bool("--verbose")
	setupLogging(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, opts); err != nil {
		slog.Debug("Команда завершилась с ошибкой", "error", err)
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		stop()
		os.Exit(1)
	}
}

// setupLogging направляет slog в stderr; без -v видны только предупреждения.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, opts docopt.Opts) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	stdinPiped := isPiped(os.Stdin)

	if doConfigure, _ := opts.Bool("configure"); doConfigure {
		current, loadErr := config.Load(path)
		if loadErr != nil && !errors.Is(loadErr, config.ErrNotConfigured) {
			return loadErr
		}
		_, err = configure(newTerminalPrompter(), path, current)
		return err
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotConfigured) && !stdinPiped {
		cfg, err = configure(newTerminalPrompter(), path, nil)
	}
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("%w (%s)", err, path)
	}

	client := api.NewHTTPClient(cfg.ServerURL)
	loginCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err = client.Login(loginCtx, cfg.Username, cfg.Password); err != nil {
		return err
	}
	slog.Debug("Вход выполнен", "server", cfg.ServerURL, "user", cfg.Username)

	a := &app{
		client:   client,
		clientID: cfg.ClientID,
		out:      os.Stdout,
		username: cfg.Username,
		password: cfg.Password,
	}
	return dispatch(ctx, a, opts, os.Stdin, stdinPiped)
}

func dispatch(ctx context.Context, a *app, opts docopt.Opts, stdin io.Reader, stdinPiped bool) error {
	if watch, _ := opts.Bool("watch"); watch {
		return a.watch(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch {
	case boolOpt(opts, "copy"):
		if file, _ := opts.String("--file"); file != "" {
			return a.copyFile(ctx, file)
		}
		typ, _ := opts.String("--type")
		return copyStdin(ctx, a, stdin, typ)
	case boolOpt(opts, "paste"):
		return a.paste(ctx)
	case boolOpt(opts, "history"):
		limit, err := opts.Int("--limit")
		if err != nil {
			return fmt.Errorf("некорректный --limit: %w", err)
		}
		return a.history(ctx, limit)
	case stdinPiped:
		return copyStdin(ctx, a, stdin, "")
	default:
		return a.paste(ctx)
	}
}

func copyStdin(ctx context.Context, a *app, stdin io.Reader, typ string) error {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("ошибка чтения stdin: %w", err)
	}
	if len(data) == 0 {
		return errors.New("нечего копировать: stdin пуст")
	}
	return a.copy(ctx, data, typ)
}

func boolOpt(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}

func configPath() (string, error) {
	if path, ok := os.LookupEnv(configPathEnvVar); ok && path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

// isPiped сообщает, что stdin перенаправлен из файла или канала.
func isPiped(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice == 0
}
