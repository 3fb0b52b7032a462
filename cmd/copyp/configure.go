package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/maynagashev/copypasta/internal/client/config"
)

// prompter задает вопросы пользователю при первичной настройке.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// readPassword читает пароль без эха; nil - читать обычной строкой.
	readPassword func() (string, error)
}

func newTerminalPrompter() *prompter {
	p := &prompter{in: bufio.NewReader(os.Stdin), out: os.Stderr}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.readPassword = func() (string, error) {
			data, err := term.ReadPassword(fd)
			_, _ = fmt.Fprintln(p.out)
			return string(data), err
		}
	}
	return p
}

func (p *prompter) line(question, current string) (string, error) {
	if current != "" {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", question, current)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: ", question)
	}
	answer, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

func (p *prompter) password(question string) (string, error) {
	if p.readPassword == nil {
		return p.line(question, "")
	}
	_, _ = fmt.Fprintf(p.out, "%s: ", question)
	password, err := p.readPassword()
	if err != nil {
		return "", fmt.Errorf("ошибка чтения пароля: %w", err)
	}
	return strings.TrimSpace(password), nil
}

// configure спрашивает параметры подключения и сохраняет их в path.
// Уже сохраненные значения предлагаются по умолчанию, client_id не меняется.
func configure(p *prompter, path string, current *config.Config) (*config.Config, error) {
	cfg := &config.Config{}
	if current != nil {
		*cfg = *current
	}
	_, _ = fmt.Fprintln(p.out, "Настройка подключения к серверу CopyPasta")

	var err error
	if cfg.ServerURL, err = p.line("URL сервера (например, https://localhost:8443)", cfg.ServerURL); err != nil {
		return nil, err
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.Username, err = p.line("Имя пользователя", cfg.Username); err != nil {
		return nil, err
	}
	password, err := p.password("Пароль")
	if err != nil {
		return nil, err
	}
	if password != "" {
		cfg.Password = password
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	if err = config.Save(path, cfg); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintf(p.out, "Конфигурация сохранена в %s\n", path)
	return cfg, nil
}
