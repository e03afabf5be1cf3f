// Package modelrelay is an OpenAI-compatible chat completion relay. It
// fronts multiple upstream providers behind one endpoint, keeps
// per-user session histories with automatic context reduction, and
// passes responses through byte-preserving, streaming included.
//
// It can run standalone via cmd/modelrelay or be embedded: create a
// Relay and register its routes on an existing gin engine.
package modelrelay

import (
	"github.com/gin-gonic/gin"

	"github.com/ghiac/modelrelay/config"
	"github.com/ghiac/modelrelay/debuger"
	"github.com/ghiac/modelrelay/engine"
	"github.com/ghiac/modelrelay/log"
	"github.com/ghiac/modelrelay/provider"
	"github.com/ghiac/modelrelay/store"
)

// Relay bundles the session store, provider router and orchestrator
// behind one HTTP surface.
type Relay struct {
	cfg    *config.Config
	store  store.SessionStore
	engine *engine.Engine
	debug  *debuger.Debugger
}

// New builds a relay from a validated configuration, constructing the
// session store the configuration selects.
func New(cfg *config.Config) (*Relay, error) {
	st, err := store.New(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, st), nil
}

// NewWithStore builds a relay over a caller-provided session store.
// Embedders use this to share a store between the relay and their own
// code; the relay still owns Close.
func NewWithStore(cfg *config.Config, st store.SessionStore) *Relay {
	r := &Relay{
		cfg:    cfg,
		store:  st,
		engine: engine.New(cfg, st, provider.NewRouter(cfg)),
	}
	if cfg.Server.Debug {
		r.debug = debuger.New(st, cfg)
	}
	return r
}

// Engine returns the request orchestrator, mainly so embedders can
// install a custom session key function.
func (r *Relay) Engine() *engine.Engine {
	return r.engine
}

// SessionStore returns the underlying session store.
func (r *Relay) SessionStore() store.SessionStore {
	return r.store
}

// Router builds a gin engine with the relay's routes registered.
func (r *Relay) Router() *gin.Engine {
	if !r.cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	r.RegisterRoutes(router)
	return router
}

// Run serves the relay on the configured address, blocking until the
// server stops.
func (r *Relay) Run() error {
	router := r.Router()
	log.Log.Infof("modelrelay listening on %s (storage=%s, providers=%d, models=%d)",
		r.cfg.Addr(), r.cfg.Storage.Type, len(r.cfg.Providers), len(r.cfg.ModelMappings))
	return router.Run(r.cfg.Addr())
}

// Close releases the session store.
func (r *Relay) Close() error {
	return r.store.Close()
}
