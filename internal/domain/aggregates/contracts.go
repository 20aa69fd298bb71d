package aggregates

import (
	"context"

	"github.com/google/uuid"
)

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate means aggregate write methods start/manage atomic DB transactions internally.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy defines how aggregate contracts should expose reads.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped allows only reads needed for invariant decisions in write flows.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyHydratedDocuments serves full documents (root + every slot) to readers.
	ReadPolicyHydratedDocuments ReadPolicy = "hydrated_documents"
)

// Contract describes aggregate-level policy expectations.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

// RequiresAggregateOwnedTx returns true when write transaction ownership is aggregate-owned.
func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

var RepositoryContract = Contract{
	Name:             "Facility.AggregateRepository",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyHydratedDocuments,
	Notes:            "Root, singleton and collection rows plus derived counters change together in one transaction.",
}

// Repository persists registered aggregate types. Every call is scoped to
// tenantID; a root owned by another tenant is reported as not found.
//
// Failures are *Error values with CodeValidation, CodeNotFound, CodeConflict,
// CodePreconditionFailed, CodeRetryable or CodeInternal. Writes have rolled back
// before an error is returned.
type Repository interface {
	Aggregate

	Create(ctx context.Context, typeName, tenantID string, p Payload) (*Document, error)
	Get(ctx context.Context, typeName, tenantID string, id uuid.UUID) (*Document, error)
	List(ctx context.Context, typeName, tenantID string, q ListQuery) (ListResult, error)
	Update(ctx context.Context, typeName, tenantID string, id uuid.UUID, p Payload) (*Document, error)
	Delete(ctx context.Context, typeName, tenantID string, id uuid.UUID) error

	// AddItem, UpdateItem and RemoveItem mutate one collection row in place and
	// resync counters when the slot feeds them.
	AddItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, item map[string]any) (map[string]any, error)
	UpdateItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, itemID uuid.UUID, item map[string]any) (map[string]any, error)
	RemoveItem(ctx context.Context, typeName, tenantID string, id uuid.UUID, slot string, itemID uuid.UUID) error

	// Resync recomputes derived counters of one root from its current children.
	Resync(ctx context.Context, typeName, tenantID string, id uuid.UUID) (*Document, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListQuery filters by equality on the type's filterable root columns. String
// filter values are parsed to the column type.
type ListQuery struct {
	Filters map[string]any
	Skip    int
	Limit   int
}

type ListResult struct {
	Items []*Document `json:"items"`
	Total int64       `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}
