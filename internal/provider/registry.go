package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"promptgrid/internal/models"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// Completer performs a single chat completion call.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req models.Request) (*models.Completion, error)
}

// Registry is the catalogue of models the form may select.
type Registry struct {
	mu      sync.RWMutex
	models  map[string]models.Model
	ordered []models.Model
}

// NewRegistry constructs an empty model registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]models.Model),
	}
}

// Register adds a model to the catalogue.
func (r *Registry) Register(model models.Model) error {
	if model.ID == "" {
		return errors.New("model id must not be empty")
	}
	if model.Label == "" {
		model.Label = model.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[model.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, model.ID)
	}
	r.models[model.ID] = model
	r.ordered = append(r.ordered, model)
	return nil
}

// Alias makes alias resolve to an already registered model.
func (r *Registry) Alias(alias, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[alias]; exists {
		return fmt.Errorf("alias %q conflicts with existing model", alias)
	}

	targetModel, ok := r.models[target]
	if !ok {
		return fmt.Errorf("alias %q references unknown model %q", alias, target)
	}

	r.models[alias] = targetModel
	return nil
}

// LookupModel returns the model registered under id or alias.
func (r *Registry) LookupModel(id string) (models.Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[id]
	if !ok {
		return models.Model{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return model, nil
}

// Models lists registered models in registration order. Aliases are omitted.
func (r *Registry) Models() []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Model, len(r.ordered))
	copy(out, r.ordered)
	return out
}
