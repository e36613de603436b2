package cache

// Keyer builds cache keys. Every key has the form "<type>:<hash>" so that
// backends and metrics can tell entry types apart.
type Keyer interface {
	// RelayoutKey identifies a dependency relayout of a document.
	RelayoutKey(docHash string, opts RelayoutKeyOpts) string

	// TidyKey identifies a grid relayout of a document.
	TidyKey(docHash string, opts TidyKeyOpts) string

	// ArtifactKey identifies a rendered image of a document.
	ArtifactKey(docHash string, opts ArtifactKeyOpts) string
}

// RelayoutKeyOpts holds everything besides the document that changes a
// relayout result.
type RelayoutKeyOpts struct {
	Scope string `json:"scope"`
	All   bool   `json:"all"`
	// ConfigHash is the hash of the layout configuration.
	ConfigHash string `json:"config"`
}

// TidyKeyOpts holds everything besides the document that changes a tidy
// result.
type TidyKeyOpts struct {
	Scope      string `json:"scope"`
	ConfigHash string `json:"config"`
}

// ArtifactKeyOpts identifies a rendering.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
	Labels bool   `json:"labels"`
}

// DefaultKeyer hashes the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) RelayoutKey(docHash string, opts RelayoutKeyOpts) string {
	return hashKey("relayout", docHash, opts)
}

func (DefaultKeyer) TidyKey(docHash string, opts TidyKeyOpts) string {
	return hashKey("tidy", docHash, opts)
}

func (DefaultKeyer) ArtifactKey(docHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", docHash, opts)
}

var _ Keyer = DefaultKeyer{}
