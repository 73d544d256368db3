// Package checkpoint persists the incremental sync boundary.
//
// The store holds exactly one record, rewritten after every fully-processed
// bookmark. Writes are atomic (temp file + rename) so an interrupted run can
// always resume from the last completed item.
package checkpoint
