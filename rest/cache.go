package rest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/restkit/decl"
	"github.com/kbukum/restkit/errors"
)

type cacheKey struct {
	service *decl.Service
	method  *decl.Method
}

// cacheEntry holds the single compilation result of one method. Racing
// callers block in once.Do until the first run completes.
type cacheEntry struct {
	once sync.Once
	tmpl *MethodTemplate
	err  error
}

// templateCache memoizes compiled templates per declared method.
type templateCache struct {
	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	runs    atomic.Int64
}

func newTemplateCache() *templateCache {
	return &templateCache{entries: make(map[cacheKey]*cacheEntry)}
}

func (c *templateCache) entry(key cacheKey) *cacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	return e
}

// get returns the cached template for key, running compile at most once.
// A failed compilation is cached as well.
func (c *templateCache) get(key cacheKey, compile func() (*MethodTemplate, error)) (*MethodTemplate, error) {
	e := c.entry(key)
	e.once.Do(func() {
		c.runs.Add(1)
		defer func() {
			if r := recover(); r != nil {
				e.tmpl = nil
				e.err = errors.MethodConfiguration(decl.ID(key.service, key.method), "compilation panicked: %v", r).
					WithCause(fmt.Errorf("%v", r))
			}
		}()
		e.tmpl, e.err = compile()
	})
	return e.tmpl, e.err
}

// len returns the number of methods seen so far.
func (c *templateCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
