package cache

// ScopedKeyer wraps a Keyer with a prefix so that several tools or
// deployments can share one backend without seeing each other's entries.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "dep2j:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// RulesKey generates a prefixed key for parse results.
func (k *ScopedKeyer) RulesKey(contentHash string) string {
	return k.prefix + k.inner.RulesKey(contentHash)
}
