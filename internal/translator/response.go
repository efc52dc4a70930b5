package translator

import "promptgrid/internal/models"

// ResultBody is the JSON form of a models.Result.
type ResultBody struct {
	OK      bool   `json:"ok"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
	Display string `json:"display"`
}

// GenerateResponse is returned by /api/generate.
type GenerateResponse struct {
	Model  string     `json:"model"`
	Prompt string     `json:"prompt"`
	Result ResultBody `json:"result"`
}

// RowBody is one comparison table row.
type RowBody struct {
	Temperature      float64    `json:"temperature"`
	MaxTokens        int        `json:"max_tokens"`
	PresencePenalty  float64    `json:"presence_penalty"`
	FrequencyPenalty float64    `json:"frequency_penalty"`
	Stop             []string   `json:"stop,omitempty"`
	Output           ResultBody `json:"output"`
}

// TableResponse is returned by /api/grid and /api/sweep.
type TableResponse struct {
	Model  string    `json:"model"`
	Prompt string    `json:"prompt"`
	Rows   []RowBody `json:"rows"`
}

// ModelBody describes one selectable model.
type ModelBody struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FromResult converts a result for JSON output.
func FromResult(r models.Result) ResultBody {
	return ResultBody{
		OK:      r.OK(),
		Text:    r.Text(),
		Error:   r.Reason(),
		Display: r.String(),
	}
}

// FromRows converts a comparison table for JSON output, preserving order.
func FromRows(model, prompt string, rows []models.Row) TableResponse {
	out := TableResponse{
		Model:  model,
		Prompt: prompt,
		Rows:   make([]RowBody, 0, len(rows)),
	}
	for _, row := range rows {
		out.Rows = append(out.Rows, RowBody{
			Temperature:      row.Params.Temperature,
			MaxTokens:        row.Params.MaxTokens,
			PresencePenalty:  row.Params.PresencePenalty,
			FrequencyPenalty: row.Params.FrequencyPenalty,
			Stop:             row.Stop,
			Output:           FromResult(row.Result),
		})
	}
	return out
}

// FromModels converts the model catalogue.
func FromModels(list []models.Model) []ModelBody {
	out := make([]ModelBody, 0, len(list))
	for _, m := range list {
		out = append(out, ModelBody{ID: m.ID, Label: m.Label})
	}
	return out
}
