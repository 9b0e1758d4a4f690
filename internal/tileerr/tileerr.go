// Package tileerr defines the typed error kinds spec section 7 groups
// every failure mode under, so callers can branch with errors.Is instead
// of string matching.
package tileerr

import "errors"

// ErrConfig marks a malformed or missing configuration value.
var ErrConfig = errors.New("tileerr: invalid configuration")

// ErrIO marks a failure reading or writing a file, socket, or database
// connection.
var ErrIO = errors.New("tileerr: i/o failure")

// ErrParse marks malformed input that never should have reached a
// decoder (a corrupt tile URL, an unparsable config value).
var ErrParse = errors.New("tileerr: parse failure")

// ErrCorrupt marks on-disk data that fails its own internal layout
// checks (a feature pack, a node-index span, a quad/BQ tree).
var ErrCorrupt = errors.New("tileerr: corrupt data")

// ErrInconsistent marks data that parses fine in isolation but
// contradicts an invariant the caller expected it to hold (a node id
// pushed twice with different coordinates, a segment count that doesn't
// match its record list).
var ErrInconsistent = errors.New("tileerr: inconsistent data")

// ErrEmpty marks an operation that found nothing to do (an empty
// feature pack, a query tile with no overlapping entries) — not
// necessarily a failure, but callers that require at least one result
// use this to say so.
var ErrEmpty = errors.New("tileerr: empty result")

// ErrNotImplemented marks a deliberately unimplemented code path (an
// external collaborator named in spec section 1 as out of scope: OSM
// PBF parsing, shapefile parsing, the scripting host).
var ErrNotImplemented = errors.New("tileerr: not implemented")
