package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Alloy/internal/domain"
)

const (
	defaultHTTPTimeout = 30 * time.Second

	// maxErrorBody — сколько байт тела ответа попадает в текст ошибки.
	maxErrorBody = 200
)

// Ключи параметров http-действия.
const (
	paramURL     = "url"
	paramMethod  = "method"
	paramHeaders = "headers"
	paramBody    = "body"
)

// HTTPHandler — handler для действия "http".
//
// Выполняет ровно один HTTP-запрос. Ответ не 2xx считается ошибкой.
//
// Params:
//
//	{
//	    "url": "https://api.example.com/hook",  // обязательно
//	    "method": "POST",                        // default: GET
//	    "headers": {"Authorization": "Bearer ..."},
//	    "body": {"event": "done"}                // сериализуется в JSON
//	}
type HTTPHandler struct {
	client *http.Client
}

// NewHTTPHandler создаёт HTTPHandler. nil — клиент с таймаутом 30s.
func NewHTTPHandler(client *http.Client) *HTTPHandler {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPHandler{client: client}
}

// Handle выполняет HTTP-запрос узла.
func (h *HTTPHandler) Handle(ctx context.Context, node *domain.ActionNode) error {
	url := paramString(node.Params, paramURL)
	if url == "" {
		return fmt.Errorf("%w: http action %s requires a url", ErrInvalidParams, node.ID)
	}

	method := strings.ToUpper(paramString(node.Params, paramMethod))
	if method == "" {
		method = http.MethodGet
	}

	headers := headerParam(node.Params, paramHeaders)

	// Подготавливаем body
	var bodyReader io.Reader
	if body, ok := node.Params[paramBody]; ok && body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal body: %v", ErrInvalidParams, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", "application/json")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}
	req.Header = headers

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Method:     method,
			URL:        url,
			Body:       string(respBody),
		}
	}

	// Дочитываем body, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// HTTPError — ответ с кодом вне 2xx.
type HTTPError struct {
	StatusCode int
	StatusText string
	Method     string
	URL        string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http action failed: %d %s (%s %s)", e.StatusCode, e.StatusText, e.Method, e.URL)
}

// Unwrap позволяет проверять errors.Is(err, ErrHTTPRequest).
func (e *HTTPError) Unwrap() error {
	return ErrHTTPRequest
}
