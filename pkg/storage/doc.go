// Package storage manages the local download tree.
//
// Assets are written atomically (temporary file + rename) and grouped under
// one directory per work, so the same filename offered by two different
// works never collides.
package storage
