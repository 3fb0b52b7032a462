package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/maynagashev/copypasta/models"
)

const maxErrorBody = 1024

var (
	// ErrAuthorization сигнализирует об ошибке авторизации (401).
	ErrAuthorization = errors.New("ошибка авторизации")
	// ErrServerBusy - сервер перегружен или хранилище недоступно (503), запрос можно повторить.
	ErrServerBusy = errors.New("сервер временно недоступен")
)

// Client определяет интерфейс для взаимодействия с API сервера буфера обмена.
type Client interface {
	// Register регистрирует нового пользователя.
	Register(ctx context.Context, username, password string) error
	// Login аутентифицирует пользователя и возвращает JWT токен.
	Login(ctx context.Context, username, password string) (string, error)
	// Paste отправляет новую запись и возвращает версию буфера.
	Paste(ctx context.Context, req models.PasteRequest) (int64, error)
	// Current возвращает текущую запись (или nil) и версию.
	Current(ctx context.Context) (*models.Entry, int64, error)
	// History возвращает предыдущие записи, новые первыми.
	History(ctx context.Context, limit int) ([]models.Entry, error)
	// Poll ждет изменения после версии since не дольше timeoutSeconds.
	Poll(ctx context.Context, since int64, timeoutSeconds int, clientID string) (*models.PollResponse, error)
	// Watch подписывается на изменения по websocket и вызывает handle на каждое.
	Watch(ctx context.Context, since int64, clientID string, handle func(models.PollResponse) error) error
	// SetAuthToken устанавливает JWT токен для аутентифицированных запросов.
	SetAuthToken(token string)
}

// httpClient реализует интерфейс Client поверх HTTP и websocket.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	authToken  string
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL string) Client {
	return &httpClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		dialer:     websocket.DefaultDialer,
	}
}

// SetAuthToken устанавливает JWT токен для клиента.
func (c *httpClient) SetAuthToken(token string) {
	c.authToken = token
}

// Register отправляет запрос на регистрацию на сервер.
func (c *httpClient) Register(ctx context.Context, username, password string) error {
	body := models.RegisterRequest{Username: username, Password: password}
	err := c.do(ctx, http.MethodPost, "/api/register", nil, body, nil, false, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("ошибка регистрации: %w", err)
	}
	return nil
}

// Login отправляет запрос на вход и сохраняет токен.
func (c *httpClient) Login(ctx context.Context, username, password string) (string, error) {
	var resp models.LoginResponse
	body := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/login", nil, body, &resp, false, http.StatusOK); err != nil {
		if errors.Is(err, ErrAuthorization) {
			return "", errors.New("неверное имя пользователя или пароль")
		}
		return "", fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}

	c.authToken = resp.Token
	return resp.Token, nil
}

// Paste отправляет запись в буфер обмена.
func (c *httpClient) Paste(ctx context.Context, req models.PasteRequest) (int64, error) {
	var resp models.PasteResponse
	if err := c.do(ctx, http.MethodPost, "/api/paste", nil, req, &resp, true, http.StatusOK); err != nil {
		return 0, fmt.Errorf("ошибка отправки в буфер: %w", err)
	}
	return resp.Version, nil
}

// Current получает текущую запись буфера.
func (c *httpClient) Current(ctx context.Context) (*models.Entry, int64, error) {
	var resp models.ClipboardResponse
	if err := c.do(ctx, http.MethodGet, "/api/clipboard", nil, nil, &resp, true, http.StatusOK); err != nil {
		return nil, 0, fmt.Errorf("ошибка получения буфера: %w", err)
	}
	return resp.Entry, resp.Version, nil
}

// History получает историю буфера.
func (c *httpClient) History(ctx context.Context, limit int) ([]models.Entry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp models.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", query, nil, &resp, true, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	return resp.Entries, nil
}

// Poll выполняет один long-poll запрос.
func (c *httpClient) Poll(
	ctx context.Context,
	since int64,
	timeoutSeconds int,
	clientID string,
) (*models.PollResponse, error) {
	query := url.Values{}
	query.Set("version", strconv.FormatInt(since, 10))
	query.Set("timeout", strconv.Itoa(timeoutSeconds))
	if clientID != "" {
		query.Set("client_id", clientID)
	}

	var resp models.PollResponse
	if err := c.do(ctx, http.MethodGet, "/api/poll", query, nil, &resp, true, http.StatusOK); err != nil {
		return nil, fmt.Errorf("ошибка ожидания изменений: %w", err)
	}
	return &resp, nil
}

// Watch держит websocket соединение, пока ctx не отменен или handle не вернет ошибку.
func (c *httpClient) Watch(
	ctx context.Context,
	since int64,
	clientID string,
	handle func(models.PollResponse) error,
) error {
	if c.authToken == "" {
		return errors.New("токен аутентификации отсутствует")
	}
	wsURL, err := c.streamURL(since, clientID)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.authToken)
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ошибка подключения к потоку изменений: %w", statusError(resp))
		}
		return fmt.Errorf("ошибка подключения к потоку изменений: %w", err)
	}
	defer conn.Close()

	// ReadJSON не принимает ctx, поэтому закрываем соединение при отмене
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var msg models.PollResponse
		if err = conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseTryAgainLater {
				return fmt.Errorf("%w: %s", ErrServerBusy, closeErr.Text)
			}
			return fmt.Errorf("поток изменений прерван: %w", err)
		}
		if err = handle(msg); err != nil {
			return err
		}
	}
}

func (c *httpClient) streamURL(since int64, clientID string) (string, error) {
	raw, err := url.JoinPath(c.baseURL, "/api/ws")
	if err != nil {
		return "", fmt.Errorf("ошибка формирования URL потока: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("ошибка разбора URL потока: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	query := url.Values{}
	query.Set("version", strconv.FormatInt(since, 10))
	if clientID != "" {
		query.Set("client_id", clientID)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// do выполняет JSON запрос и декодирует ответ в out, если он не nil.
func (c *httpClient) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body, out any,
	auth bool,
	wantStatus int,
) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("ошибка формирования URL: %w", err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("ошибка кодирования запроса: %w", marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if err = c.setAuthHeader(req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

func (c *httpClient) setAuthHeader(req *http.Request) error {
	if c.authToken == "" {
		return errors.New("токен аутентификации отсутствует")
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	return nil
}

// statusError превращает неуспешный ответ в ошибку с текстом от сервера.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(data))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthorization
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrServerBusy, text)
	}
	if text == "" {
		return fmt.Errorf("статус %d", resp.StatusCode)
	}
	return fmt.Errorf("статус %d: %s", resp.StatusCode, text)
}
