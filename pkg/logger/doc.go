// Package logger provides structured logging for the AO3 sync tool.
//
// It wraps zerolog behind a small interface with leveled logging, field
// helpers, optional file output, and a global instance initialized from the
// logging section of the configuration.
package logger
