package core

import (
	"context"
	"io"
	"time"
)

// Entry is a single item listed from the remote source directory.
//
// Fields:
//   - Name: The base name of the entry (e.g. "dev1.json").
//   - Path: The full remote path of the entry, as understood by the Session that listed it.
//   - Size: The size in bytes reported by the remote endpoint, when known.
//   - ModTime: The modification time reported by the remote endpoint, when known.
//   - IsDir: Whether the entry is a directory.
type Entry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// RawFile is the fully accumulated content of one remote file.
// It is created by the fetcher and discarded as soon as it has been parsed.
type RawFile struct {
	Name    string
	Path    string
	Content []byte
}

// Transport opens sessions against a remote drop directory.
//
// Methods:
//   - Type: Returns the transport type (e.g. "ftp", "s3", "local").
//   - Connect: Opens a new session. Every cycle opens exactly one session and closes it before returning.
type Transport interface {
	Type() string
	Connect(ctx context.Context) (Session, error)
}

// Session is an open connection to the remote drop directory.
//
// Methods:
//   - Info: Returns a description of the remote endpoint, used for logging.
//   - List: Returns the entries of a directory in the order the remote endpoint returns them.
//   - Open: Opens a read stream for a remote file.
//   - Rename: Moves a remote file to a new path.
//   - MakeDir: Creates a remote directory.
//   - Close: Terminates the session.
//
// Notes:
//   - A Session is owned by a single cycle and must not be used concurrently.
type Session interface {
	Info() string
	List(ctx context.Context, dir string) ([]Entry, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Rename(ctx context.Context, src string, dst string) error
	MakeDir(ctx context.Context, dir string) error
	Close() error
}

// Device is a registered traffic counter, as known to the device registry.
type Device struct {
	DeviceID       string `bson:"device_id" yaml:"device_id" json:"device_id"`
	DeviceName     string `bson:"device_name,omitempty" yaml:"device_name" json:"device_name,omitempty"`
	StoreCode      string `bson:"store_code" yaml:"store_code" json:"store_code"`
	RegionID       string `bson:"region_id" yaml:"region_id" json:"region_id"`
	OrganizationID string `bson:"organization_id,omitempty" yaml:"organization_id" json:"organization_id,omitempty"`
	Active         string `bson:"active,omitempty" yaml:"active" json:"active,omitempty"`
}

// DeviceRegistry answers device lookups.
//
// Methods:
//   - ExistsInStore: Reports whether a device with the given id is registered in the given store.
//   - FindByID: Returns the first device with the given id, regardless of store, or ErrDeviceNotFound.
//
// Notes:
//   - The two lookups are deliberately separate: validation is store-scoped while enrichment
//     is not, so a device id reused across stores may pass one and resolve to another store in the other.
type DeviceRegistry interface {
	Type() string
	ExistsInStore(ctx context.Context, storeCode string, deviceID string) (bool, error)
	FindByID(ctx context.Context, deviceID string) (*Device, error)
}

// EnrichedRecord is a parsed report ready for persistence.
//
// Fields:
//   - Digest: The content digest of the report; the record's persistent identity.
//   - SourceFile: The name of the file the report was read from.
//   - DeviceID, SiteID, ReportDate: Identity fields extracted from the report.
//   - OrganizationID, RegionID, StoreCode: Resolved from the device registry.
//   - Metrics: The report's Metrics object with the enrichment fields merged in.
//   - UpdatedAt: When the record was last written.
type EnrichedRecord struct {
	Digest         string
	SourceFile     string
	DeviceID       string
	SiteID         string
	ReportDate     string
	OrganizationID string
	RegionID       string
	StoreCode      string
	Metrics        map[string]any
	UpdatedAt      time.Time
}

// Document returns the persisted shape of the record.
func (r *EnrichedRecord) Document() map[string]any {
	return map[string]any{
		"Metrics":     r.Metrics,
		"hash":        r.Digest,
		"source_file": r.SourceFile,
		"updated_at":  r.UpdatedAt,
	}
}

// ReportStore persists enriched records keyed by digest.
//
// Methods:
//   - Type: Returns the store type (e.g. "mongo", "postgres").
//   - Upsert: Inserts the record, or fully replaces the one already stored under the same digest.
//   - Close: Releases the underlying connection.
type ReportStore interface {
	Type() string
	Upsert(ctx context.Context, digest string, record *EnrichedRecord) error
	Close(ctx context.Context) error
}

// CycleLock prevents two cycles over the same drop directory from overlapping.
// Acquire returns a release function when the lock was obtained, or ok=false when another holder has it.
type CycleLock interface {
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}
