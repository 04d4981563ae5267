// Package source defines the uniform candidate shape produced by every
// acquisition source, the adapter contract each source implements,
// and the router that selects which source handles a given operation.
// Concrete adapters live in subpackages, one per source.
package source
