package searchdb

import "errors"

var (
	ErrMalformedQuery  = errors.New("malformed query")
	ErrInvalidDocument = errors.New("invalid index document")
	ErrDuplicateRef    = errors.New("duplicate document ref")
)

// Index is a loaded, read-only search index.
type Index interface {
	Search(queryText string) ([]Match, error)
	DocCount() (uint64, error)
	Close() error
}
