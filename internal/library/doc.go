// Package library maintains a sqlite index of the local music collection
// and answers ownership checks against it.
// Scanning walks the configured music directories, reads embedded tags
// from new and modified files with a bounded worker group,
// and drops entries whose files vanished.
// Ownership checks score a wanted track against every indexed record
// using the tiered confidence model and report album completeness.
package library
