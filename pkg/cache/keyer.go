package cache

// FormatVersion identifies the encoding of cached parse results. Bump it
// whenever the parser's output for some input changes.
const FormatVersion = 1

// Keyer generates cache keys.
type Keyer interface {
	// RulesKey returns the key for the rules parsed from data with the
	// given content hash (see [Hash]).
	RulesKey(contentHash string) string
}

// DefaultKeyer generates unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RulesKey returns "rules:<hash>" where the hash covers the format version
// and the content hash.
func (DefaultKeyer) RulesKey(contentHash string) string {
	return hashKey("rules", FormatVersion, contentHash)
}
