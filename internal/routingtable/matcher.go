package routingtable

import (
	"strings"
	"sync"
)

// Wildcard matches any run of characters, including the empty one.
const Wildcard = "*"

// Predicate reports whether a key matches a compiled pattern.
// Predicates are pure and safe for concurrent use.
type Predicate func(key string) bool

// PatternCache compiles wildcard patterns into predicates and keeps them for
// the lifetime of the cache. Entries are keyed by the literal pattern text and
// are never evicted, so the cache grows with the number of distinct patterns
// ever requested.
//
// It is safe for concurrent use. Two goroutines compiling the same pattern at
// once may both do the work; the later insert wins and both results behave
// identically.
type PatternCache struct {
	mu       sync.RWMutex
	compiled map[string]Predicate
}

// NewPatternCache creates an empty pattern cache.
func NewPatternCache() *PatternCache {
	return &PatternCache{
		compiled: make(map[string]Predicate),
	}
}

// Compile returns the predicate for pattern, compiling it on first use.
func (c *PatternCache) Compile(pattern string) Predicate {
	c.mu.RLock()
	pred, ok := c.compiled[pattern]
	c.mu.RUnlock()
	if ok {
		return pred
	}

	pred = compilePattern(pattern)

	c.mu.Lock()
	c.compiled[pattern] = pred
	c.mu.Unlock()

	return pred
}

// Test reports whether key matches pattern.
func (c *PatternCache) Test(pattern, key string) bool {
	return c.Compile(pattern)(key)
}

// Len returns the number of cached patterns.
func (c *PatternCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.compiled)
}

// compilePattern builds an anchored predicate for pattern. Patterns without a
// wildcard reduce to string equality. Otherwise the literal segments between
// wildcards must appear in order: the first as a prefix, the last as a
// suffix, the rest leftmost in between. Matching is on bytes, so any string,
// including invalid UTF-8, is a valid pattern.
func compilePattern(pattern string) Predicate {
	if !strings.Contains(pattern, Wildcard) {
		return func(key string) bool {
			return key == pattern
		}
	}

	if strings.Trim(pattern, Wildcard) == "" {
		return func(string) bool {
			return true
		}
	}

	segments := strings.Split(pattern, Wildcard)
	prefix := segments[0]
	suffix := segments[len(segments)-1]

	var middle []string
	minLen := len(prefix) + len(suffix)
	for _, seg := range segments[1 : len(segments)-1] {
		if seg != "" {
			middle = append(middle, seg)
			minLen += len(seg)
		}
	}

	return func(key string) bool {
		if len(key) < minLen || !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			return false
		}
		rest := key[len(prefix) : len(key)-len(suffix)]
		for _, seg := range middle {
			i := strings.Index(rest, seg)
			if i < 0 {
				return false
			}
			rest = rest[i+len(seg):]
		}
		return true
	}
}
