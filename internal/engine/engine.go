// Package engine drives the story forward one tick at a time: a fixed
// sequence of stages that plans a scene, executes its world changes,
// generates and evaluates prose, commits the scene, and folds the
// extracted facts back into the world store.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyloom/internal/actions"
	"storyloom/internal/config"
	"storyloom/internal/facts"
	"storyloom/internal/gen"
	"storyloom/internal/search"
	"storyloom/internal/store"
)

type Engine struct {
	store    store.Store
	gen      gen.Service
	index    search.Index
	applier  *facts.Applier
	disp     *actions.Dispatcher
	builtins *actions.Builtins
	cfg      *config.ProjectConfig
	log      *zap.Logger

	// storeRoot is where prose documents live alongside the entity
	// documents; projectDir holds failures/ and checkpoints/.
	storeRoot  string
	projectDir string

	now func() time.Time
}

type Options struct {
	Store      store.Store
	Gen        gen.Service
	Index      search.Index
	Config     *config.ProjectConfig
	Log        *zap.Logger
	StoreRoot  string
	ProjectDir string
}

func New(opts Options) (*Engine, error) {
	if opts.Store == nil || opts.Gen == nil || opts.Index == nil || opts.Config == nil {
		return nil, fmt.Errorf("engine requires a store, a generation service, a search index and a config")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	disp := actions.NewDispatcher(log)
	builtins := actions.NewBuiltins(opts.Store, opts.Index, log)
	if err := builtins.RegisterAll(disp); err != nil {
		return nil, fmt.Errorf("registering operations: %w", err)
	}

	return &Engine{
		store:      opts.Store,
		gen:        opts.Gen,
		index:      opts.Index,
		applier:    facts.NewApplier(opts.Store, log),
		disp:       disp,
		builtins:   builtins,
		cfg:        opts.Config,
		log:        log,
		storeRoot:  opts.StoreRoot,
		projectDir: opts.ProjectDir,
		now:        time.Now,
	}, nil
}

// generate builds a request with the project's configured budget.
func (e *Engine) generate(prompt string, maxTokens int) gen.Request {
	if maxTokens == 0 {
		maxTokens = e.cfg.Generation.MaxTokens
	}
	return gen.Request{
		Prompt:    prompt,
		MaxTokens: maxTokens,
		Timeout:   e.cfg.GenerationTimeout(),
	}
}
