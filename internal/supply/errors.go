package supply

import "errors"

// Errors shared by the store, the spreadsheet client and the sync engine.
//
// Callers match them with errors.Is:
//
//	if errors.Is(err, supply.ErrTransport) {
//	    // remote unreachable, local state is still valid
//	}
var (
	// ErrConfiguration is returned when the remote spreadsheet has no
	// document id or access key.
	ErrConfiguration = errors.New("remote spreadsheet not configured")

	// ErrTransport is returned when the remote could not be reached.
	ErrTransport = errors.New("remote spreadsheet unreachable")

	// ErrResponse is returned when the remote answered with a missing,
	// malformed or unsuccessful payload.
	ErrResponse = errors.New("invalid response from remote spreadsheet")

	// ErrMissingRowBinding is returned when a row write is attempted for an
	// item that has no remote row.
	ErrMissingRowBinding = errors.New("item is not bound to a spreadsheet row")

	// ErrPersistence is returned when the local snapshot could not be
	// serialized, read or written.
	ErrPersistence = errors.New("local persistence failed")

	// ErrNotFound signals that the local store holds no snapshot yet.
	// It marks a first run, not a failure.
	ErrNotFound = errors.New("no local snapshot")
)

// IsRemote returns true for errors raised while talking to the remote
// spreadsheet. These never invalidate local state.
func IsRemote(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrResponse) ||
		errors.Is(err, ErrMissingRowBinding)
}

// Message turns an error into a short message suitable for showing to the
// crew. Unknown errors are returned verbatim.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "Spreadsheet is not configured; working from local data"
	case errors.Is(err, ErrTransport):
		return "Spreadsheet unreachable; showing local data"
	case errors.Is(err, ErrResponse):
		return "Spreadsheet returned unexpected data; showing local data"
	case errors.Is(err, ErrMissingRowBinding):
		return "Item has no spreadsheet row; change saved locally only"
	case errors.Is(err, ErrPersistence):
		return "Could not save local data; changes will be retried on next edit"
	default:
		return err.Error()
	}
}
