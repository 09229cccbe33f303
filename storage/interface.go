package storage

// Provider is the physical byte store behind the file tree. Keys are
// opaque relative paths generated by the upload pipeline; the database
// row is the source of truth for which keys are live.
type Provider interface {
	Save(key string, data []byte) error
	Read(key string) ([]byte, error)
	Delete(key string) error
	Exists(key string) (bool, error)
}
