// Package chunker is the range engine at the heart of dbsync. It walks a
// table in contiguous primary-key ranges, fingerprints each range with a
// caller-supplied SQL aggregate, fetches full rows for mismatching ranges
// and repairs them with delete/upsert primitives. All operations are scoped
// by half-open key ranges [start, end) and an optional filter clause.
//
// A Chunker is synchronous and meant for a single logical caller; parallel
// workers each construct their own instance over disjoint ranges.
package chunker
