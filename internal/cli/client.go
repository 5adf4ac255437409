package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ActionResponse — узел workflow из API.
type ActionResponse struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
	Next   []string       `json:"next,omitempty"`
}

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Trigger     string           `json:"trigger,omitempty"`
	Schedule    string           `json:"schedule,omitempty"`
	Entry       string           `json:"entry,omitempty"`
	Actions     []ActionResponse `json:"actions"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at,omitempty"`
}

// ExecutionResponse — состояние выполнения из API.
type ExecutionResponse struct {
	WorkflowID      string         `json:"workflow_id"`
	ExecutionID     string         `json:"execution_id"`
	CurrentActionID string         `json:"current_action_id,omitempty"`
	Completed       bool           `json:"completed"`
	Retries         map[string]int `json:"retries"`
	StartedAt       string         `json:"started_at"`
	UpdatedAt       string         `json:"updated_at"`
}

// AcceptedResponse — ответ на асинхронный запуск.
type AcceptedResponse struct {
	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// LogResponse — запись журнала из API.
type LogResponse struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"`
	ExecutionID string `json:"execution_id"`
	ActionID    string `json:"action_id"`
	Status      string `json:"status"`
	Attempt     int    `json:"attempt"`
	Message     string `json:"message,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// --- Request types ---

// ExecuteRequest — запуск выполнения.
type ExecuteRequest struct {
	ExecutionID   string `json:"execution_id,omitempty"`
	MaxRetries    *int   `json:"max_retries,omitempty"`
	BackoffBaseMs *int   `json:"backoff_base_ms,omitempty"`
	Async         bool   `json:"async,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ответ API с кодом >= 400.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Alloy API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Синхронное выполнение может ждать backoff
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Workflows ---

// CreateWorkflow отправляет определение workflow (YAML или JSON) как есть.
func (c *Client) CreateWorkflow(definition []byte) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.doData(http.MethodPost, "/api/v1/workflows", bytes.NewReader(definition), &wf)
	return &wf, err
}

// ListWorkflows возвращает все workflow.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", &workflows)
	return workflows, err
}

// UpdateWorkflow заменяет определение workflow целиком.
func (c *Client) UpdateWorkflow(id string, definition []byte) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.doData(http.MethodPut, "/api/v1/workflows/"+url.PathEscape(id), bytes.NewReader(definition), &wf)
	return &wf, err
}

// DeleteWorkflow удаляет workflow вместе с выполнениями и журналом.
func (c *Client) DeleteWorkflow(id string) error {
	resp, err := c.do(http.MethodDelete, "/api/v1/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 204 без тела
	return c.checkError(resp)
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+url.PathEscape(id), &wf)
	return &wf, err
}

// ListWorkflowLogs возвращает журнал всех выполнений workflow.
func (c *Client) ListWorkflowLogs(id string) ([]LogResponse, error) {
	var logs []LogResponse
	err := c.list("/api/v1/workflows/"+url.PathEscape(id)+"/logs", &logs)
	return logs, err
}

// --- Executions ---

// Execute выполняет workflow синхронно.
func (c *Client) Execute(workflowID string, req ExecuteRequest) (*ExecutionResponse, error) {
	req.Async = false
	var state ExecutionResponse
	err := c.post(executionsPath(workflowID), req, &state)
	return &state, err
}

// ExecuteAsync ставит выполнение в очередь.
func (c *Client) ExecuteAsync(workflowID string, req ExecuteRequest) (*AcceptedResponse, error) {
	req.Async = true
	var accepted AcceptedResponse
	err := c.post(executionsPath(workflowID), req, &accepted)
	return &accepted, err
}

// GetExecution возвращает состояние выполнения.
func (c *Client) GetExecution(workflowID, executionID string) (*ExecutionResponse, error) {
	var state ExecutionResponse
	err := c.get(executionsPath(workflowID)+"/"+url.PathEscape(executionID), &state)
	return &state, err
}

// ListExecutionLogs возвращает журнал выполнения.
func (c *Client) ListExecutionLogs(workflowID, executionID string) ([]LogResponse, error) {
	var logs []LogResponse
	err := c.list(executionsPath(workflowID)+"/"+url.PathEscape(executionID)+"/logs", &logs)
	return logs, err
}

func executionsPath(workflowID string) string {
	return "/api/v1/workflows/" + url.PathEscape(workflowID) + "/executions"
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doData(http.MethodPost, path, bytes.NewReader(data), result)
}

func (c *Client) list(path string, result any) error {
	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body io.Reader, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
