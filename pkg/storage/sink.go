package storage

import (
	"fmt"

	"dycrawler/pkg/douyin"
)

// Sink receives crawled records. Implementations are safe for
// concurrent use and own duplicate suppression; callers may hand the
// same record to a sink more than once across resumed runs.
type Sink interface {
	SaveContent(aweme *douyin.Aweme) error
	SaveComment(comment *douyin.Comment) error
	SaveCreator(creator *douyin.Creator) error
	Close() error
}

// New creates a sink of the given kind writing under dir.
func New(kind, dir string) (Sink, error) {
	switch kind {
	case "", "json", "jsonl":
		return NewJSONLinesSink(dir)
	case "csv":
		return NewCSVSink(dir)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}
