package workflow

import "sync"

// SharedContext allows tasks to share data. The runner stores the value of
// every completed task under its id.
type SharedContext struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewSharedContext creates a new SharedContext.
func NewSharedContext() *SharedContext {
	return &SharedContext{
		data: make(map[string]interface{}),
	}
}

// Set adds or updates a value in the context.
func (sc *SharedContext) Set(key string, value interface{}) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.data[key] = value
}

// Get retrieves a value from the context.
func (sc *SharedContext) Get(key string) (interface{}, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	val, ok := sc.data[key]
	return val, ok
}

// Len returns the number of stored values.
func (sc *SharedContext) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.data)
}
