// Package errors defines the sentinel errors shared across scenforge and a
// small builder for enriching them with context before they surface.
//
// The sentinels fall into three families mirroring how callers are expected
// to react: configuration errors (bad input, fatal to the current operation),
// not-found errors (a required name or file is absent), and IO/parse errors
// (fatal, never retried here).
package errors

import "github.com/cockroachdb/errors"

// Is reports whether any error in err's chain matches target. Re-exported
// so callers checking sentinels need only this package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Configuration errors: malformed input supplied by the caller or a setup
// file. These always echo the offending input.
var (
	// ErrBadSelector indicates a path-query selector that failed to compile.
	ErrBadSelector = errors.New("invalid selector")

	// ErrBadYearRange indicates a year-range specification that does not
	// match "YYYY", "YYYY-YYYY" or "YYYY-YYYY:step".
	ErrBadYearRange = errors.New("unrecognized year range specification")

	// ErrUnknownOperation indicates a dispatcher lookup by a name that no
	// registered operation carries.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnknownVersion indicates a model version with no entry in the
	// capability table.
	ErrUnknownVersion = errors.New("unknown model version")

	// ErrBadArgument indicates an operation argument of the wrong type or
	// an out-of-range value.
	ErrBadArgument = errors.New("invalid argument")
)

// Not-found errors: something that must exist does not. Benign-absence
// paths (delete, existence queries) do not raise these.
var (
	// ErrComponentNotFound indicates a named scenario component missing
	// from a configuration document.
	ErrComponentNotFound = errors.New("scenario component not found")

	// ErrElementNotFound indicates a selector that matched nothing where a
	// match was required (e.g. an insertion anchor).
	ErrElementNotFound = errors.New("element not found")

	// ErrFileNotFound indicates a file absent from the scenario chain and
	// every reference prefix.
	ErrFileNotFound = errors.New("file not found")
)

// IO and environment errors.
var (
	// ErrXMLParse indicates a document that could not be parsed. Parse
	// failures are fatal; there is no partial parse.
	ErrXMLParse = errors.New("XML parse failure")

	// ErrWorkspace indicates a failure creating or populating a private
	// workspace from the reference tree.
	ErrWorkspace = errors.New("workspace setup failed")

	// ErrWorkspaceLocked indicates the reference-copy lock is held by
	// another process.
	ErrWorkspaceLocked = errors.New("workspace is locked by another process")
)
