// Package store keeps named estimate snapshots: write a blob under an id,
// read it back, enumerate what is saved. Drivers share one contract so the
// session layer does not care where the bytes land.
package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"   // local file (default)
	DriverPostgres Driver = "postgres" // shared database
	DriverS3       Driver = "s3"       // S3 / MinIO compatible bucket
	DriverRedis    Driver = "redis"    // redis hash + sorted set
	DriverMemory   Driver = "memory"   // process memory (tests)
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("estimate not found")

// Record is one saved estimate. Payload is the encoded snapshot; the other
// fields are kept alongside it so listing never decodes payloads.
type Record struct {
	ID         string
	Name       string
	SavedAt    time.Time
	GrandTotal float64
	Payload    []byte
}

// Summary is the listing view of a record.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SavedAt    time.Time `json:"savedAt"`
	GrandTotal float64   `json:"grandTotal"`
}

func (r Record) summary() Summary {
	return Summary{ID: r.ID, Name: r.Name, SavedAt: r.SavedAt, GrandTotal: r.GrandTotal}
}

// Store persists records. Put replaces any record with the same id.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Driver() Driver
	Close() error
}

// sortSummaries orders newest first, ties broken by id.
func sortSummaries(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].SavedAt.Equal(s[j].SavedAt) {
			return s[i].SavedAt.After(s[j].SavedAt)
		}
		return s[i].ID < s[j].ID
	})
}

// savedAtMillis is the persisted precision of SavedAt.
func savedAtMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func recordFromFields(id, name, savedAt, grandTotal string) Record {
	rec := Record{ID: id, Name: name}
	if ms, err := strconv.ParseInt(savedAt, 10, 64); err == nil {
		rec.SavedAt = fromMillis(ms)
	}
	if total, err := strconv.ParseFloat(grandTotal, 64); err == nil {
		rec.GrandTotal = total
	}
	return rec
}
