package interfaces

import (
	"context"

	"github.com/goliatone/go-cms-replace/content"
	"github.com/google/uuid"
)

// RecordStore is the storage collaborator the engines load and persist
// content through. Every call is fallible; engines treat failures as
// per-record faults.
type RecordStore interface {
	Load(ctx context.Context, kind content.Kind, id uuid.UUID) (*content.Record, error)
	// LoadMany returns the records that could be found, in the order of ids.
	// Missing ids are omitted rather than reported as errors.
	LoadMany(ctx context.Context, kind content.Kind, ids []uuid.UUID) ([]*content.Record, error)
	Save(ctx context.Context, record *content.Record) error
	// QueryIDs lists record ids of the kind, restricted to bundles when non-empty.
	QueryIDs(ctx context.Context, kind content.Kind, bundles []string) ([]uuid.UUID, error)
}

// SchemaProvider is the schema collaborator describing bundle fields.
type SchemaProvider interface {
	Bundle(kind content.Kind, bundle string) (*content.BundleSchema, error)
	FieldsOf(kind content.Kind, bundle string) ([]content.FieldSchema, error)
}
