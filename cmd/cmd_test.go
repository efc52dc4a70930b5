package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgrid/internal/config"
	"promptgrid/internal/models"
	"promptgrid/internal/translator"
)

type chatBackend struct {
	mu       sync.Mutex
	requests []map[string]any
	content  string
}

func (b *chatBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.requests = append(b.requests, body)
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": b.content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}
}

// run executes the CLI against a fake completion backend.
func run(t *testing.T, backend *chatBackend, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	t.Setenv(config.EnvAPIKey, "sk-test")
	t.Setenv(config.EnvBaseURL, srv.URL+"/v1")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--env-file", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHelpListsCommands(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())

	for _, name := range []string{"serve", "generate", "grid", "sweep", "models"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestServe_MissingCredential(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")

	err := Execute(context.Background(), []string{"serve", "--env-file", ""})

	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestServe_InvalidPort(t *testing.T) {
	_, err := run(t, &chatBackend{}, "serve", "--port", "70000")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid TCP port")
}

func TestUnknownCommand(t *testing.T) {
	err := Execute(context.Background(), []string{"bogus"})

	assert.Error(t, err)
}

func TestGenerate_JSON(t *testing.T) {
	backend := &chatBackend{content: "A titanium phone."}

	out, err := run(t, backend, "generate", "--json", "--product", "iPhone 15 Pro", "--temperature", "0", "--stop", "END, ###")

	require.NoError(t, err)
	var resp translator.GenerateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Result.OK)
	assert.Equal(t, "A titanium phone.", resp.Result.Text)
	assert.Equal(t, "Write a compelling product description for: iPhone 15 Pro", resp.Prompt)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "gpt-3.5-turbo", req["model"])
	assert.Equal(t, []any{"END", "###"}, req["stop"])
	assert.EqualValues(t, 150, req["max_tokens"])
	assert.Contains(t, req, "temperature", "zero temperature must still be sent")
}

func TestGenerate_Plain(t *testing.T) {
	out, err := run(t, &chatBackend{content: "**Bold** claim"}, "generate", "--plain")

	require.NoError(t, err)
	assert.Equal(t, "**Bold** claim\n", out)
}

func TestGenerate_BlankProductMakesNoCall(t *testing.T) {
	backend := &chatBackend{}

	_, err := run(t, backend, "generate", "--product", "  ")

	require.Error(t, err)
	assert.Equal(t, "please enter a product name", err.Error())
	assert.Empty(t, backend.requests)
}

func TestGenerate_InvalidParams(t *testing.T) {
	backend := &chatBackend{}

	_, err := run(t, backend, "generate", "--max-tokens", "123")

	assert.ErrorIs(t, err, translator.ErrInvalidParams)
	assert.Empty(t, backend.requests)
}

func TestGrid_JSON(t *testing.T) {
	backend := &chatBackend{content: "ok"}

	out, err := run(t, backend, "grid", "--json")

	require.NoError(t, err)
	var resp translator.TableResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Rows, 5)
	assert.Equal(t, 300, resp.Rows[2].MaxTokens)
	assert.Len(t, backend.requests, 5)
	for _, req := range backend.requests {
		assert.NotContains(t, req, "stop")
	}
}

func TestGrid_Table(t *testing.T) {
	out, err := run(t, &chatBackend{content: "ok"}, "grid")

	require.NoError(t, err)
	assert.Contains(t, out, "Prompt: Write a compelling product description for: iPhone 15 Pro")
	assert.Contains(t, out, "Temperature")
	assert.NotContains(t, out, "Stop Sequence")
}

func TestSweep_Pinned(t *testing.T) {
	backend := &chatBackend{content: "ok"}

	out, err := run(t, backend, "sweep", "--json", "--pin-temperature", "0.7", "--pin-max-tokens", "150", "--pin-stop", "END")

	require.NoError(t, err)
	var resp translator.TableResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Rows, 4)
	for _, row := range resp.Rows {
		assert.Equal(t, []string{"END"}, row.Stop)
	}
}

func TestSweep_InvalidPin(t *testing.T) {
	backend := &chatBackend{}

	_, err := run(t, backend, "sweep", "--pin-max-tokens", "7")

	assert.ErrorIs(t, err, translator.ErrInvalidParams)
	assert.Empty(t, backend.requests)
}

func TestModels_JSON(t *testing.T) {
	out, err := run(t, &chatBackend{}, "models", "--json")

	require.NoError(t, err)
	assert.JSONEq(t, `{"default":"gpt-3.5-turbo","models":[{"id":"gpt-3.5-turbo","label":"GPT-3.5 Turbo"},{"id":"gpt-4","label":"GPT-4"}]}`, out)
}

func TestNewLogger_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	g := &globalFlags{debug: true, logJSON: true}

	g.newLogger(&buf).Debug("wired")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "wired", line["msg"])
	assert.Contains(t, line, "source")
}

func TestRenderTable_MarksFailures(t *testing.T) {
	rows := []models.Row{
		{Params: models.Params{Temperature: 0.7, MaxTokens: 150}, Result: models.Success("fine")},
		{Params: models.Params{Temperature: 1.2, MaxTokens: 300}, Stop: []string{"END", "###"}, Result: models.Failure("boom")},
	}

	out := renderTable(rows, true)

	assert.Contains(t, out, "Stop Sequence")
	assert.Contains(t, out, "None")
	assert.Contains(t, out, "END, ###")
	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, "1.2")
}

func TestTableCells(t *testing.T) {
	row := models.Row{Params: models.Params{MaxTokens: 50}, Result: models.Failure("")}

	assert.Equal(t, []string{"0.0", "50", "0.0", "0.0", "Error: unknown error"}, tableCells(row, false))
	assert.Equal(t, []string{"0.0", "50", "0.0", "0.0", "None", "Error: unknown error"}, tableCells(row, true))
}
