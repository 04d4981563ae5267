// Package match contains the pure text and duration matching primitives
// used to decide whether a candidate item corresponds to a wanted track.
// It provides field normalization, edit-distance similarity,
// duration comparison, the tiered confidence model used for ownership checks,
// the weighted confidence model used for download-candidate ranking,
// and ordered search query generation.
// Nothing in this package performs I/O or holds state.
package match
