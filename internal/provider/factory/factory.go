package factory

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"promptgrid/internal/config"
	"promptgrid/internal/models"
	"promptgrid/internal/provider"
	openaiProvider "promptgrid/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// NewCompleter constructs the completion client from configuration. It is
// called once at startup and the result shared by every request.
func NewCompleter(cfg config.ProviderConfig) (provider.Completer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	p, err := openaiProvider.New("openai", cfg, newHTTPClient(timeout))
	if err != nil {
		return nil, fmt.Errorf("initialise openai provider: %w", err)
	}
	return p, nil
}

// NewRegistry builds the model catalogue from configuration.
func NewRegistry(cfg config.ProviderConfig) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, m := range cfg.Models {
		if err := registry.Register(models.Model{ID: m.ID, Label: m.Label}); err != nil {
			return nil, fmt.Errorf("register model: %w", err)
		}
	}
	for alias, target := range cfg.Aliases {
		if err := registry.Alias(alias, target); err != nil {
			return nil, fmt.Errorf("register alias: %w", err)
		}
	}
	return registry, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
