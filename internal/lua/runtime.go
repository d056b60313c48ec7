// Package lua runs user scripts against the light board on a single Lua VM.
package lua

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightboard/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = fmt.Errorf("lua runtime closed")

const queueSize = 100

// LuaWork represents work to be executed on the Lua VM.
// All Lua execution after LoadScript must go through the work queue.
type LuaWork func(ctx context.Context)

// Runtime manages the Lua VM with single-threaded execution
type Runtime struct {
	L *lua.LState

	lightboard *modules.LightboardModule

	workQueue chan LuaWork

	// closing is closed once; senders select on it instead of checking a flag.
	closing   chan struct{}
	closeOnce sync.Once
}

// NewRuntime creates a Lua runtime with the log and lightboard modules preloaded.
// events may be nil; scripts then cannot register handlers.
func NewRuntime(b modules.Board, events modules.Events) *Runtime {
	r := &Runtime{
		L:         lua.NewState(),
		workQueue: make(chan LuaWork, queueSize),
		closing:   make(chan struct{}),
	}

	r.lightboard = modules.NewLightboardModule(b, events, func(fn func(context.Context)) bool {
		return r.Do(context.Background(), fn)
	})

	r.L.PreloadModule("log", modules.NewLogModule().Loader)
	r.L.PreloadModule("lightboard", r.lightboard.Loader)

	return r
}

// Close stops accepting work, drops script event handlers and closes the Lua state.
// Call it after Run has returned.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.closing)
		r.lightboard.Close()
		r.L.Close()
	})
}

func (r *Runtime) isClosing() bool {
	select {
	case <-r.closing:
		return true
	default:
		return false
	}
}

// Do queues work to be executed on the Lua VM (non-blocking).
// Returns false if the runtime is closing, the queue is full, or ctx is done.
func (r *Runtime) Do(ctx context.Context, work LuaWork) bool {
	if r.isClosing() {
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	}
	select {
	case <-r.closing:
		log.Warn().Msg("Lua runtime closing, dropping work")
		return false
	case <-ctx.Done():
		log.Warn().Msg("Context cancelled, dropping Lua work")
		return false
	case r.workQueue <- work:
		return true
	default:
		log.Warn().Msg("Lua work queue full, dropping work")
		return false
	}
}

// DoSyncWithResult queues work, waits for space, and waits for the result.
func (r *Runtime) DoSyncWithResult(ctx context.Context, work func(context.Context) error) error {
	if r.isClosing() {
		return ErrRuntimeClosed
	}
	done := make(chan error, 1)
	wrapped := LuaWork(func(c context.Context) {
		done <- work(c)
	})

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case r.workQueue <- wrapped:
	}

	select {
	case <-r.closing:
		return ErrRuntimeClosed
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Eval runs a chunk of Lua source on the worker and waits for it to finish.
func (r *Runtime) Eval(ctx context.Context, source string) error {
	return r.DoSyncWithResult(ctx, func(context.Context) error {
		return r.L.DoString(source)
	})
}

// Run is the worker loop and the only goroutine that touches Lua after LoadScript.
// Exits when ctx is cancelled or the runtime is closed.
func (r *Runtime) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainQueue(context.WithoutCancel(ctx))
			return
		case <-r.closing:
			r.drainQueue(ctx)
			return
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		}
	}
}

// drainQueue processes any remaining work in the queue before exiting
func (r *Runtime) drainQueue(ctx context.Context) {
	for {
		select {
		case work := <-r.workQueue:
			r.executeWork(ctx, work)
		default:
			return
		}
	}
}

// executeWork runs a single work item with panic recovery
func (r *Runtime) executeWork(ctx context.Context, work LuaWork) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Msg("Lua work panicked - worker continuing")
		}
	}()
	r.L.SetContext(ctx)
	work(ctx)
}

// LoadScript loads and executes a Lua script (must be called before Run)
func (r *Runtime) LoadScript(path string) error {
	log.Info().Str("path", path).Msg("Loading Lua script")

	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute Lua script: %w", err)
	}

	log.Info().Msg("Lua script loaded successfully")
	return nil
}
