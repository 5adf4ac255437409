package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/shaiso/Alloy/internal/orchestrator"
)

func writeDefinition(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.Execute()
}

const chainYAML = `id: wf-1
actions:
  - id: A
    type: log
    params: {message: "hello from A"}
    next: [B]
  - id: B
    type: delay
    params: {ms: 1}
`

// --- local run / validate ---

func TestRunCmd_Completes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	outputFn := func() *Output { return NewOutputTo(false, &stdout, &stderr) }

	err := execute(t, NewRunCmd(outputFn), writeDefinition(t, chainYAML), "--execution-id", "exec-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "COMPLETED") || !strings.Contains(stdout.String(), "exec-1") {
		t.Errorf("expected completed state in output, got:\n%s", stdout.String())
	}
	if strings.Count(stdout.String(), "success") != 2 {
		t.Errorf("expected 2 success log rows, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "hello from A") {
		t.Errorf("log action should write to stderr, got:\n%s", stderr.String())
	}
}

func TestRunCmd_JSON(t *testing.T) {
	var stdout bytes.Buffer
	outputFn := func() *Output { return NewOutputTo(true, &stdout, io.Discard) }

	if err := execute(t, NewRunCmd(outputFn), writeDefinition(t, chainYAML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result RunResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout.String())
	}
	if result.Execution == nil || !result.Execution.Completed || result.Execution.ExecutionID == "" {
		t.Errorf("unexpected execution: %+v", result.Execution)
	}
	if len(result.Logs) != 2 || result.Error != "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRunCmd_FailureReportsState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	def := `id: wf-http
actions:
  - id: call
    type: http
    params: {url: "` + server.URL + `"}
`
	var stdout bytes.Buffer
	outputFn := func() *Output { return NewOutputTo(true, &stdout, io.Discard) }

	err := execute(t, NewRunCmd(outputFn), writeDefinition(t, def), "--max-retries", "1", "--backoff-ms", "0")
	if !errors.Is(err, orchestrator.ErrFailedExecuteWorkflow) {
		t.Fatalf("expected ErrFailedExecuteWorkflow, got %v", err)
	}

	var result RunResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Execution == nil || result.Execution.CurrentActionID != "call" || result.Execution.Retries["call"] != 2 {
		t.Errorf("unexpected persisted state: %+v", result.Execution)
	}
	if len(result.Logs) != 1 || result.Logs[0].Status != "failed" || !strings.Contains(result.Error, "502") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestValidateCmd(t *testing.T) {
	var stderr bytes.Buffer
	outputFn := func() *Output { return NewOutputTo(false, io.Discard, &stderr) }

	if err := execute(t, NewValidateCmd(outputFn), writeDefinition(t, chainYAML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr.String(), "wf-1 is valid (2 actions, entry A)") {
		t.Errorf("unexpected message: %s", stderr.String())
	}

	cyclic := "id: c\nactions:\n  - {id: a, type: log, next: [b]}\n  - {id: b, type: log, next: [a]}\n"
	if err := execute(t, NewValidateCmd(outputFn), writeDefinition(t, cyclic)); err == nil {
		t.Error("expected error for cyclic workflow")
	}

	if err := execute(t, NewValidateCmd(outputFn), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// --- API commands ---

type recordedRequest struct {
	method string
	path   string
	body   string
}

func newFakeAPI(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func TestExecuteCmd_Async(t *testing.T) {
	server, requests := newFakeAPI(t, http.StatusAccepted,
		`{"data": {"workflow_id": "wf-1", "execution_id": "e-9", "status": "QUEUED"}}`)

	var stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(false, io.Discard, &stderr) }

	err := execute(t, NewExecuteCmd(clientFn, outputFn), "wf-1", "--async", "--max-retries", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPost || req.path != "/api/v1/workflows/wf-1/executions" {
		t.Errorf("unexpected request: %+v", req)
	}

	var sent ExecuteRequest
	if err := json.Unmarshal([]byte(req.body), &sent); err != nil {
		t.Fatal(err)
	}
	if !sent.Async || sent.MaxRetries == nil || *sent.MaxRetries != 2 || sent.BackoffBaseMs != nil {
		t.Errorf("unexpected request body: %s", req.body)
	}
	if !strings.Contains(stderr.String(), "e-9 queued") {
		t.Errorf("unexpected message: %s", stderr.String())
	}
}

func TestExecutionShowCmd(t *testing.T) {
	server, requests := newFakeAPI(t, http.StatusOK,
		`{"data": {"workflow_id": "wf-1", "execution_id": "e-1", "current_action_id": "B", "completed": false, "retries": {"B": 2, "A": 0}}}`)

	var stdout bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(false, &stdout, io.Discard) }

	if err := execute(t, NewExecutionCmd(clientFn, outputFn), "show", "wf-1", "e-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if (*requests)[0].path != "/api/v1/workflows/wf-1/executions/e-1" {
		t.Errorf("unexpected path: %s", (*requests)[0].path)
	}
	out := stdout.String()
	if !strings.Contains(out, "RUNNING") || !strings.Contains(out, "A=0,B=2") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExecutionLogsCmd_JSON(t *testing.T) {
	server, _ := newFakeAPI(t, http.StatusOK,
		`{"data": [{"action_id": "A", "status": "success", "attempt": 0}], "total": 1}`)

	var stdout bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(true, &stdout, io.Discard) }

	if err := execute(t, NewExecutionCmd(clientFn, outputFn), "logs", "wf-1", "e-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var logs []LogResponse
	if err := json.Unmarshal(stdout.Bytes(), &logs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(logs) != 1 || logs[0].ActionID != "A" {
		t.Errorf("unexpected logs: %+v", logs)
	}
}

func TestWorkflowApplyCmd_SendsFileAsIs(t *testing.T) {
	server, requests := newFakeAPI(t, http.StatusCreated,
		`{"data": {"id": "wf-1", "actions": [{"id": "A", "type": "log"}, {"id": "B", "type": "delay"}]}}`)

	var stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(false, io.Discard, &stderr) }

	if err := execute(t, NewWorkflowCmd(clientFn, outputFn), "apply", writeDefinition(t, chainYAML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if (*requests)[0].body != chainYAML {
		t.Errorf("definition should be sent unchanged, got %q", (*requests)[0].body)
	}
	if !strings.Contains(stderr.String(), "wf-1 created (2 actions)") {
		t.Errorf("unexpected message: %s", stderr.String())
	}
}

func TestWorkflowListCmd(t *testing.T) {
	server, requests := newFakeAPI(t, http.StatusOK,
		`{"data": [{"id": "wf-1", "trigger": "webhook", "actions": [{"id": "A", "type": "log"}]}, {"id": "wf-2", "trigger": "schedule", "schedule": "0 * * * *", "actions": []}], "total": 2}`)

	var stdout bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(false, &stdout, io.Discard) }

	if err := execute(t, NewWorkflowCmd(clientFn, outputFn), "list"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req := (*requests)[0]; req.method != http.MethodGet || req.path != "/api/v1/workflows" {
		t.Errorf("unexpected request: %+v", req)
	}
	out := stdout.String()
	if !strings.Contains(out, "wf-1") || !strings.Contains(out, "wf-2") || !strings.Contains(out, "0 * * * *") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWorkflowUpdateCmd_SendsFileAsIs(t *testing.T) {
	server, requests := newFakeAPI(t, http.StatusOK,
		`{"data": {"id": "wf-1", "actions": [{"id": "A", "type": "log"}, {"id": "B", "type": "delay"}]}}`)

	var stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(server.URL) }
	outputFn := func() *Output { return NewOutputTo(false, io.Discard, &stderr) }

	if err := execute(t, NewWorkflowCmd(clientFn, outputFn), "update", "wf-1", writeDefinition(t, chainYAML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := (*requests)[0]
	if req.method != http.MethodPut || req.path != "/api/v1/workflows/wf-1" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.body != chainYAML {
		t.Errorf("definition should be sent unchanged, got %q", req.body)
	}
	if !strings.Contains(stderr.String(), "wf-1 updated (2 actions)") {
		t.Errorf("unexpected message: %s", stderr.String())
	}
}

func TestWorkflowDeleteCmd(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		wantErr  bool
	}{
		{"deleted", http.StatusNoContent, "", false},
		{"not found", http.StatusNotFound, `{"error": {"code": "NOT_FOUND", "message": "workflow not found"}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, requests := newFakeAPI(t, tt.status, tt.response)

			var stderr bytes.Buffer
			clientFn := func() *Client { return NewClient(server.URL) }
			outputFn := func() *Output { return NewOutputTo(false, io.Discard, &stderr) }

			err := execute(t, NewWorkflowCmd(clientFn, outputFn), "delete", "wf-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}

			if req := (*requests)[0]; req.method != http.MethodDelete || req.path != "/api/v1/workflows/wf-1" {
				t.Errorf("unexpected request: %+v", req)
			}
			if !tt.wantErr && !strings.Contains(stderr.String(), "wf-1 deleted") {
				t.Errorf("unexpected message: %s", stderr.String())
			}
		})
	}
}

func TestClient_APIError(t *testing.T) {
	server, _ := newFakeAPI(t, http.StatusNotFound,
		`{"error": {"code": "NOT_FOUND", "message": "workflow not found"}}`)

	_, err := NewClient(server.URL).GetWorkflow("missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if err.Error() != "NOT_FOUND: workflow not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestFormatRetries(t *testing.T) {
	if got := formatRetries(map[string]int{"b": 1, "a": 3}); got != "a=3,b=1" {
		t.Errorf("unexpected: %q", got)
	}
	if got := formatRetries(nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
