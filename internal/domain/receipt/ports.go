package receipt

import (
	"context"
	"errors"
)

// Errors returned through the ports. Adapters wrap them with context.
var (
	ErrLedgerWrite  = errors.New("ledger write failed")
	ErrLocalStorage = errors.New("local storage failed")
	ErrUpload       = errors.New("upload failed")
)

// NumberGenerator assigns receipt numbers
type NumberGenerator interface {
	Generate() string
}

// Renderer draws a receipt into a document
type Renderer interface {
	Render(ctx context.Context, rec *Record, profile BrandingProfile) (Document, error)
}

// Ledger is the append-only transaction log
type Ledger interface {
	Append(ctx context.Context, rec *Record) error
}

// LedgerReader is implemented by ledgers that can list what they hold
type LedgerReader interface {
	Records(ctx context.Context) ([]Record, error)
}

// StorageBackend persists a rendered document. It never returns an error;
// failures are carried in the StorageResult.
type StorageBackend interface {
	Name() string
	Persist(ctx context.Context, doc Document, rec *Record) StorageResult
}

// LocationKind tells whether a stored location is a filesystem path or a URL
type LocationKind string

const (
	LocationPath LocationKind = "path"
	LocationLink LocationKind = "link"
)

// StorageResult is either a location or a failure, never both
type StorageResult struct {
	Kind     LocationKind
	Location string
	// Link is a shareable URL, set by remote backends
	Link string
	Err  error
}

// Stored creates a successful result
func Stored(kind LocationKind, location string) StorageResult {
	return StorageResult{Kind: kind, Location: location}
}

// StoredWithLink creates a successful result carrying a shareable link
func StoredWithLink(location, link string) StorageResult {
	return StorageResult{Kind: LocationLink, Location: location, Link: link}
}

// StorageFailed creates a failed result
func StorageFailed(err error) StorageResult {
	return StorageResult{Err: err}
}

// OK reports whether the document was stored
func (r StorageResult) OK() bool {
	return r.Err == nil
}

// Uploaded reports whether a remote copy exists
func (r StorageResult) Uploaded() bool {
	return r.OK() && r.Kind == LocationLink
}

// Fatal reports whether the failure must abort the request.
// Local storage failures are fatal; failed uploads degrade.
func (r StorageResult) Fatal() bool {
	return r.Err != nil && !errors.Is(r.Err, ErrUpload)
}
