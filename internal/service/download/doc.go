// Package download drives batches of wanted tracks through search,
// verification, transfer, and post-processing. It bounds concurrency with
// download slots, watches running transfers for stalls, and falls back
// through ranked candidates until a track completes or gives up.
package download
