package guard

import (
	"sync"
	"sync/atomic"
)

// SingleFlight holds one in-process flag per job name. It only protects a
// job against overlapping with itself inside this process.
type SingleFlight struct {
	flags sync.Map // job name -> *atomic.Bool
}

func NewSingleFlight() *SingleFlight {
	return &SingleFlight{}
}

func (g *SingleFlight) flag(name string) *atomic.Bool {
	v, _ := g.flags.LoadOrStore(name, new(atomic.Bool))
	return v.(*atomic.Bool)
}

// TryAcquire sets the flag for name. It returns false when a run already
// holds it. The release func is idempotent.
func (g *SingleFlight) TryAcquire(name string) (release func(), ok bool) {
	f := g.flag(name)
	if !f.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { f.Store(false) })
	}, true
}

// Held reports whether a run of name currently holds the flag.
func (g *SingleFlight) Held(name string) bool {
	v, ok := g.flags.Load(name)
	return ok && v.(*atomic.Bool).Load()
}
