package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrItemNotFound is returned when a query or versioned write targets a
	// vault item that does not exist (or is soft-deleted, for writes).
	ErrItemNotFound = errors.New("vault item was not found")

	// ErrVersionConflict is returned when an optimistic-locking check fails:
	// the version supplied by the caller does not match the current version
	// stored in the database, meaning another writer has modified the item
	// since the caller last read it.
	ErrVersionConflict = errors.New("vault item version conflict occurred")

	// ErrLinkNotFound is returned when no public link exists for the given
	// hash or id.
	ErrLinkNotFound = errors.New("public link was not found")

	// ErrLinkExpired is returned when a link exists but its expiry time has
	// passed. Terminal: the link never becomes usable again.
	ErrLinkExpired = errors.New("public link has expired")

	// ErrLinkExhausted is returned when a link exists and is within its
	// expiry window but the view bound has been reached. Terminal.
	ErrLinkExhausted = errors.New("public link view limit reached")

	// ErrTaskNotFound is returned when no rotation task exists for the
	// given id.
	ErrTaskNotFound = errors.New("rotation task was not found")

	// ErrMasterKeyNotFound is returned when the installation has no master
	// key material yet.
	ErrMasterKeyNotFound = errors.New("master key material was not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)
