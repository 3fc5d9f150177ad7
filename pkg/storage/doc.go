// Package storage persists crawled records. A Sink receives content,
// comment and creator records and owns duplicate suppression, so
// resumed runs can replay items safely. Two sinks ship: JSON lines
// and CSV, both writing one file per record type.
package storage
