// Package motion holds per-frame channel data as a dense frames x channels
// matrix backed by gonum.
//
// A Matrix is immutable once built. The parser fills one through a Builder in
// a single pass without re-copying the backing array; Slice is the only
// operation that copies frame data, and it copies exactly the requested rows.
package motion
