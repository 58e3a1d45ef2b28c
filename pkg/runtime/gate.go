package runtime

import (
	"errors"
	"sync/atomic"
)

// ErrNotReady is returned while the runtime is still loading.
var ErrNotReady = errors.New("model or data not loaded")

// Gate publishes the runtime once it is loaded. The zero value is not ready.
type Gate struct {
	rt atomic.Pointer[Runtime]
}

// Set publishes rt. Later calls replace it.
func (g *Gate) Set(rt *Runtime) {
	g.rt.Store(rt)
}

// Get returns the runtime or ErrNotReady.
func (g *Gate) Get() (*Runtime, error) {
	rt := g.rt.Load()
	if rt == nil {
		return nil, ErrNotReady
	}
	return rt, nil
}

// Ready reports whether the runtime has been published.
func (g *Gate) Ready() bool {
	return g.rt.Load() != nil
}
