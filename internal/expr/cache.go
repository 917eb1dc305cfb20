package expr

import (
	"regexp"
	"sync"
)

// Cache memoizes validated expression trees and compiled regex patterns,
// keyed by source text. Compilation is idempotent, so concurrent population
// of the same key is safe to race: last writer wins and the artifacts are
// equivalent. Ownership belongs to the matcher that created the cache; there
// are no package-level singletons.
type Cache struct {
	exprs   map[string]Node
	regexps map[string]*regexp.Regexp
	mu      sync.RWMutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		exprs:   make(map[string]Node),
		regexps: make(map[string]*regexp.Regexp),
	}
}

// Expression returns the validated tree for an expression, parsing it on
// first use. Only successful parses are cached.
func (c *Cache) Expression(text string) (Node, error) {
	c.mu.RLock()
	node, ok := c.exprs[text]
	c.mu.RUnlock()
	if ok {
		return node, nil
	}

	node, err := Parse(text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.exprs[text] = node
	c.mu.Unlock()
	return node, nil
}

// Regexp returns the case-insensitive compiled pattern for a regex, compiling
// it on first use.
func (c *Cache) Regexp(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.regexps[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, errf(0, "invalid regex pattern: %v", err)
	}

	c.mu.Lock()
	c.regexps[pattern] = re
	c.mu.Unlock()
	return re, nil
}
