package model

import "sync"

// Process-wide registry, set once.
var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry, building the default one on
// first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewDefaultRegistry()
	})
	return global
}

// InitGlobal installs r as the process-wide registry. Only the first
// initialization wins, so commands call it before anything asks for
// Global.
func InitGlobal(r *Registry) {
	globalOnce.Do(func() {
		global = r
	})
}
