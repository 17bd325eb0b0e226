package vessel

import "context"

// Store is the persistent vessel repository. Implementations are safe for
// concurrent use and responsible for their own consistency; callers treat
// each call as independent and possibly failing with ErrNotFound or
// ErrUnavailable.
type Store interface {
	// ListTracked returns every vessel with IsTracked set, ordered by id.
	ListTracked(ctx context.Context) ([]State, error)

	// Get returns a single vessel.
	Get(ctx context.Context, id int64) (State, error)

	// ApplyUpdate persists a position update for one vessel.
	ApplyUpdate(ctx context.Context, id int64, u PositionUpdate) error

	// ListAssignments returns all assignments for a user, active or not.
	ListAssignments(ctx context.Context, userID string) ([]Assignment, error)

	// ResolveMMSI maps MMSIs to internal vessel ids. MMSIs with no
	// registered vessel are absent from the result.
	ResolveMMSI(ctx context.Context, mmsis []string) (map[string]int64, error)
}
