package shader

import (
	"sync"

	"github.com/gogpu/gpgpu/gpucore"
)

// ProgramCache shares compiled programs between users of identical
// descriptors. Programs are reference counted: Acquire compiles on a miss
// and adds a reference, Release drops one and destroys the program when no
// references remain.
//
// Thread Safety: ProgramCache is safe for concurrent use.
type ProgramCache struct {
	mu       sync.Mutex
	adapter  gpucore.GPUAdapter
	compiler Compiler

	entries map[string]*cacheEntry
	keys    map[*Program]string
}

type cacheEntry struct {
	program *Program
	refs    int
}

// NewProgramCache creates a cache compiling through compiler. A nil compiler
// selects NagaCompiler.
func NewProgramCache(adapter gpucore.GPUAdapter, compiler Compiler) *ProgramCache {
	if compiler == nil {
		compiler = NewNagaCompiler()
	}
	return &ProgramCache{
		adapter:  adapter,
		compiler: compiler,
		entries:  make(map[string]*cacheEntry),
		keys:     make(map[*Program]string),
	}
}

// Acquire returns the program for desc, compiling it on first use.
// Each successful Acquire must be balanced by one Release.
func (c *ProgramCache) Acquire(desc *ProgramDesc) (*Program, error) {
	key := desc.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.refs++
		return e.program, nil
	}

	p, err := c.compiler.Compile(c.adapter, desc)
	if err != nil {
		return nil, err
	}
	c.entries[key] = &cacheEntry{program: p, refs: 1}
	c.keys[p] = key
	return p, nil
}

// Release drops one reference to p and reports whether the program was
// destroyed. Releasing a program the cache does not own is a no-op.
func (c *ProgramCache) Release(p *Program) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.keys[p]
	if !ok {
		return false
	}
	e := c.entries[key]
	e.refs--
	if e.refs > 0 {
		return false
	}
	delete(c.entries, key)
	delete(c.keys, p)
	p.Destroy(c.adapter)
	return true
}

// Owns reports whether p was compiled by the cache and is still cached.
func (c *ProgramCache) Owns(p *Program) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.keys[p]
	return ok
}

// Refs returns the reference count of p, or 0 if the cache does not own it.
func (c *ProgramCache) Refs(p *Program) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.keys[p]
	if !ok {
		return 0
	}
	return c.entries[key].refs
}

// Len returns the number of cached programs.
func (c *ProgramCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear destroys every cached program regardless of outstanding references.
func (c *ProgramCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.program.Destroy(c.adapter)
	}
	c.entries = make(map[string]*cacheEntry)
	c.keys = make(map[*Program]string)
}
