// control/hotreload.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide reload hooks, for components that want a poke after any
// ConfigStore change regardless of which store changed.

package control

import "sync"

var (
	reloadMu    sync.Mutex
	reloadHooks []func()
)

// RegisterReloadHook adds a component reload listener.
func RegisterReloadHook(fn func()) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// TriggerHotReload dispatches every registered hook on its own
// goroutine.
func TriggerHotReload() {
	reloadMu.Lock()
	hooks := append([]func(){}, reloadHooks...)
	reloadMu.Unlock()
	for _, fn := range hooks {
		go fn()
	}
}
