package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message represents a single role-tagged chat message.
type Message struct {
	Role    Role
	Content string
}

// Params is one combination of generation parameters.
type Params struct {
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

// Request is the canonical representation of a single completion call.
// Stop is nil when no stop sequences apply; it is never an empty slice.
type Request struct {
	Model    string
	Messages []Message
	Params   Params
	Stop     []string
}

// Row is one line of a comparison table.
type Row struct {
	Params Params
	Stop   []string
	Result Result
}

// Model identifies a selectable model.
type Model struct {
	ID    string
	Label string
}

// Completion is the first choice of a provider response.
type Completion struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
