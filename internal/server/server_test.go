package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptgrid/internal/config"
	"promptgrid/internal/generator"
	"promptgrid/internal/logger"
	"promptgrid/internal/models"
	"promptgrid/internal/provider"
	"promptgrid/internal/provider/factory"
	"promptgrid/internal/translator"
)

type fakeCompleter struct {
	calls []models.Request
	text  string
	err   error
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, req models.Request) (*models.Completion, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Completion{Text: f.text}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Provider.APIKey = "sk-test"
	return cfg
}

func newTestServer(t *testing.T, fc provider.Completer) *Server {
	t.Helper()
	cfg := testConfig()
	registry, err := factory.NewRegistry(cfg.Provider)
	require.NoError(t, err)

	gen := generator.New(registry, fc, generator.WithLogger(logger.Nop()))
	srv, err := New(cfg, gen, registry, WithLogger(logger.Nop()))
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func doForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func defaultForm() url.Values {
	return url.Values{
		"product":           {"iPhone 15 Pro"},
		"style":             {"You are a copywriter."},
		"template":          {"Write a compelling product description for: {product}"},
		"model":             {"gpt-3.5-turbo"},
		"temperature":       {"0.7"},
		"max_tokens":        {"150"},
		"presence_penalty":  {"0.0"},
		"frequency_penalty": {"0.0"},
		"stop":              {""},
	}
}

func TestNew_RequiresCredential(t *testing.T) {
	cfg := config.Default()
	registry, err := factory.NewRegistry(cfg.Provider)
	require.NoError(t, err)

	_, err = New(cfg, generator.New(registry, &fakeCompleter{}), registry)

	assert.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentSecurityPolicy), "form-action 'self'")
}

func TestIndex_RendersDefaults(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="iPhone 15 Pro"`)
	assert.Contains(t, body, "Ready to Generate")
	assert.Contains(t, body, `<option value="gpt-3.5-turbo" selected>GPT-3.5 Turbo</option>`)
	assert.Contains(t, body, `<option value="0.7" selected>0.7</option>`)
	assert.Contains(t, body, `<option value="150" selected>150</option>`)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".banner")
}

func TestGeneratePage_BlankProductMakesNoCall(t *testing.T) {
	fc := &fakeCompleter{text: "unused"}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("product", "   ")

	rec := doForm(t, srv, "/generate", form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "please enter a product name")
	assert.Empty(t, fc.calls)
}

func TestGridPage_BlankProductMakesNoCall(t *testing.T) {
	fc := &fakeCompleter{}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("product", "")

	rec := doForm(t, srv, "/grid", form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fc.calls)
}

func TestGeneratePage_Success(t *testing.T) {
	fc := &fakeCompleter{text: "**Titanium.** <script>alert(1)</script>"}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("stop", "END, ###")

	rec := doForm(t, srv, "/generate", form)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Generated Description")
	assert.Contains(t, body, "<strong>Titanium.</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")

	require.Len(t, fc.calls, 1)
	call := fc.calls[0]
	assert.Equal(t, []string{"END", "###"}, call.Stop)
	assert.Equal(t, models.Params{Temperature: 0.7, MaxTokens: 150}, call.Params)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "Write a compelling product description for: iPhone 15 Pro", call.Messages[1].Content)
}

func TestGeneratePage_FailureShownInline(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{err: errors.New("invalid api key")})

	rec := doForm(t, srv, "/generate", defaultForm())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error: invalid api key")
}

func TestGeneratePage_BadNumber(t *testing.T) {
	fc := &fakeCompleter{}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("temperature", "hot")

	rec := doForm(t, srv, "/generate", form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "temperature must be a number")
	assert.Empty(t, fc.calls)
}

func TestGridPage(t *testing.T) {
	fc := &fakeCompleter{text: "A phone."}
	srv := newTestServer(t, fc)

	rec := doForm(t, srv, "/grid", defaultForm())

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Parameter Comparison Grid")
	assert.Contains(t, body, "Parameter Effects Analysis")
	assert.Equal(t, 5, strings.Count(body, `<td class="output-cell">A phone.</td>`))
	assert.Len(t, fc.calls, 5)
}

func TestTablePages_IgnoreUnusedSliders(t *testing.T) {
	form := defaultForm()
	form.Set("temperature", "hot")
	form.Set("max_tokens", "lots")
	form.Set("presence_penalty", "?")

	for path, want := range map[string]int{"/grid": 5, "/sweep": len(generator.Sweep{}.Combinations())} {
		t.Run(path, func(t *testing.T) {
			fc := &fakeCompleter{text: "ok"}
			srv := newTestServer(t, fc)

			rec := doForm(t, srv, path, form)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Len(t, fc.calls, want)
		})
	}
}

func TestSweepPage_PinnedSliderMustParse(t *testing.T) {
	fc := &fakeCompleter{}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("max_tokens", "lots")
	form.Set("pin_max_tokens", "1")

	rec := doForm(t, srv, "/sweep", form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "max tokens must be an integer")
	assert.Empty(t, fc.calls)
}

func TestSweepPage(t *testing.T) {
	fc := &fakeCompleter{text: "ok"}
	srv := newTestServer(t, fc)
	form := defaultForm()
	form.Set("pin_temperature", "1")
	form.Set("pin_max_tokens", "1")
	form.Set("pin_stop", "1")
	form.Set("stop", "END")

	rec := doForm(t, srv, "/sweep", form)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Parameter Sweep")
	require.Len(t, fc.calls, 4)
	for _, call := range fc.calls {
		assert.Equal(t, []string{"END"}, call.Stop)
		assert.InDelta(t, 0.7, call.Params.Temperature, 1e-9)
	}
}

func TestAPIGenerate(t *testing.T) {
	fc := &fakeCompleter{text: "A phone."}
	srv := newTestServer(t, fc)

	rec := doJSON(t, srv, "/api/generate", `{"product":"iPhone 15 Pro","style":"","temperature":0,"stop":",,"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp translator.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gpt-3.5-turbo", resp.Model)
	assert.Equal(t, "Write a compelling product description for: iPhone 15 Pro", resp.Prompt)
	assert.Equal(t, translator.ResultBody{OK: true, Text: "A phone.", Display: "A phone."}, resp.Result)

	require.Len(t, fc.calls, 1)
	assert.Nil(t, fc.calls[0].Stop)
	require.Len(t, fc.calls[0].Messages, 1, "blank style sends only the user message")
}

func TestAPIGenerate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "blank product", body: `{"product":"  "}`, wantMsg: "please enter a product name"},
		{name: "unknown placeholder", body: `{"template":"Describe {name}"}`, wantCode: "invalid_template", wantMsg: "{name}"},
		{name: "stray brace", body: `{"template":"Describe } {product}"}`, wantCode: "invalid_template"},
		{name: "unknown model", body: `{"model":"davinci"}`, wantCode: "model_not_found"},
		{name: "temperature", body: `{"temperature":1.3}`, wantMsg: "temperature"},
		{name: "max tokens", body: `{"max_tokens":120}`, wantMsg: "max tokens"},
		{name: "bad stop", body: `{"stop":1}`, wantMsg: "invalid JSON payload"},
		{name: "empty body", body: ``, wantMsg: "request body is required"},
		{name: "two objects", body: `{}{}`, wantMsg: "single JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{}
			srv := newTestServer(t, fc)

			rec := doJSON(t, srv, "/api/generate", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "invalid_request_error", body.Error.Type)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body.Error.Code)
			}
			assert.Contains(t, body.Error.Message, tt.wantMsg)
			assert.Empty(t, fc.calls)
		})
	}
}

func TestAPIGenerate_FailureIsNotHTTPError(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{err: errors.New("rate limit reached")})

	rec := doJSON(t, srv, "/api/generate", `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp translator.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Result.OK)
	assert.Equal(t, "rate limit reached", resp.Result.Error)
	assert.True(t, strings.HasPrefix(resp.Result.Display, "Error: "))
}

func TestAPIGrid_AllFail(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("The model `gpt-4` does not exist")}
	srv := newTestServer(t, fc)

	rec := doJSON(t, srv, "/api/grid", `{"model":"gpt-4","temperature":99}`)

	require.Equal(t, http.StatusOK, rec.Code, "grid ignores the single-run sliders")
	var resp translator.TableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 5)
	for i, row := range resp.Rows {
		assert.Equal(t, generator.DefaultGrid[i].Temperature, row.Temperature)
		assert.Equal(t, generator.DefaultGrid[i].MaxTokens, row.MaxTokens)
		assert.True(t, strings.HasPrefix(row.Output.Display, "Error: "), "row %d", i)
	}
	assert.Len(t, fc.calls, 5)
}

func TestAPISweep(t *testing.T) {
	fc := &fakeCompleter{text: "ok"}
	srv := newTestServer(t, fc)

	rec := doJSON(t, srv, "/api/sweep", `{"pin":{"temperature":0.2,"presence_penalty":0,"stop":"END"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp translator.TableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Rows, 6)
	assert.Equal(t, []string{"END"}, resp.Rows[0].Stop)
}

func TestAPISweep_InvalidPin(t *testing.T) {
	fc := &fakeCompleter{}
	srv := newTestServer(t, fc)

	rec := doJSON(t, srv, "/api/sweep", `{"pin":{"max_tokens":7}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fc.calls)
}

func TestAPIModels(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default":"gpt-3.5-turbo","models":[{"id":"gpt-3.5-turbo","label":"GPT-3.5 Turbo"},{"id":"gpt-4","label":"GPT-4"}]}`, rec.Body.String())
}

func TestNotFoundUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakeCompleter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error.Message)
}
