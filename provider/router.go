// Package provider resolves namespaced model identifiers to upstream
// providers and performs the buffered and streaming HTTP calls against
// their OpenAI-compatible chat completion endpoints.
package provider

import (
	"net/http"
	"time"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/model"
)

// Target is a resolved dispatch destination: the provider, the model
// name it expects, and the context budget in effect for the request.
type Target struct {
	Provider    *config.Provider
	Model       string // actual upstream model name
	DisplayName string // name the client used
	Context     config.ContextConfig
}

// Router resolves display names and dispatches requests upstream. It
// is immutable after construction and safe for concurrent use.
type Router struct {
	cfg     *config.Config
	clients map[string]*http.Client
	started int64
}

// NewRouter builds a router over the resolved configuration, creating
// one pooled HTTP client per provider.
func NewRouter(cfg *config.Config) *Router {
	clients := make(map[string]*http.Client, len(cfg.Providers))
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		clients[p.Name] = newProviderClient(p)
	}
	return &Router{
		cfg:     cfg,
		clients: clients,
		started: time.Now().Unix(),
	}
}

// Resolve maps a display name to a dispatch target.
//
// The mapping table wins over structural parsing. When no mapping
// matches, the name is split on its FIRST slash: the prefix must name
// a configured provider and the suffix (which may itself contain
// slashes) is used as the upstream model name, subject to the
// provider's allow list.
func (r *Router) Resolve(displayName string) (Target, error) {
	if m := r.cfg.Mapping(displayName); m != nil {
		p := r.cfg.Provider(m.ProviderName)
		if p == nil {
			// Unreachable after config validation.
			return Target{}, model.NewModelNotFoundError(displayName)
		}
		return Target{
			Provider:    p,
			Model:       m.ActualModelName,
			DisplayName: displayName,
			Context:     r.cfg.ContextFor(displayName),
		}, nil
	}

	providerName, modelName, ok := splitNamespace(displayName)
	if !ok {
		return Target{}, model.NewModelNotFoundError(displayName)
	}

	p := r.cfg.Provider(providerName)
	if p == nil {
		return Target{}, model.NewModelNotFoundError(displayName)
	}
	if !p.Allows(modelName) {
		return Target{}, model.NewModelNotFoundError(displayName)
	}

	return Target{
		Provider:    p,
		Model:       modelName,
		DisplayName: displayName,
		Context:     r.cfg.Context,
	}, nil
}

// splitNamespace splits "provider/model" on the first slash only; the
// model part may contain further slashes.
func splitNamespace(name string) (provider, model string, ok bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			if i == 0 || i == len(name)-1 {
				return "", "", false
			}
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

// Model is one entry of the /v1/models listing.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the OpenAI-shaped model listing.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// ListModels enumerates every configured model mapping.
func (r *Router) ListModels() ModelList {
	data := make([]Model, 0, len(r.cfg.ModelMappings))
	for _, m := range r.cfg.ModelMappings {
		data = append(data, Model{
			ID:      m.DisplayName,
			Object:  "model",
			Created: r.started,
			OwnedBy: m.ProviderName,
		})
	}
	return ModelList{Object: "list", Data: data}
}

// client returns the pooled HTTP client for a provider.
func (r *Router) client(p *config.Provider) *http.Client {
	if c, ok := r.clients[p.Name]; ok {
		return c
	}
	return http.DefaultClient
}
