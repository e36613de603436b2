package cache

// ScopedKeyer wraps a Keyer with a prefix so that several canvases or
// tenants can share one backend without sharing entries.
//
// Example usage:
//
//	// One namespace per workspace on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "ws:"+workspaceID+":")
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

// RelayoutKey generates a prefixed relayout key.
func (k *ScopedKeyer) RelayoutKey(docHash string, opts RelayoutKeyOpts) string {
	return k.prefix + k.inner.RelayoutKey(docHash, opts)
}

// TidyKey generates a prefixed tidy key.
func (k *ScopedKeyer) TidyKey(docHash string, opts TidyKeyOpts) string {
	return k.prefix + k.inner.TidyKey(docHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(docHash, opts)
}
