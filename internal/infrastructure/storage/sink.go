// internal/infrastructure/storage/sink.go
package storage

import "context"

// Backends a record can land in
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Record is a persistable value that receives its identifier from the sink
type Record interface {
	SetID(id string)
}

// Receipt identifies a stored record
type Receipt struct {
	ID      string
	Backend string
}

// Local reports whether the record went to the local fallback queue
func (r Receipt) Local() bool {
	return r.Backend == BackendLocal
}

// Sink appends records. An append either stores the whole record or nothing.
type Sink[T Record] interface {
	Append(ctx context.Context, rec T) (Receipt, error)
}
