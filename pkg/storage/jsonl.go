package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dycrawler/pkg/douyin"
)

const (
	contentsFile = "contents.jsonl"
	commentsFile = "comments.jsonl"
	creatorsFile = "creators.jsonl"
)

// JSONLinesSink appends one JSON object per line to per-record-type
// files. Records already present in the files are skipped, so a
// resumed run can replay items without duplicating output.
type JSONLinesSink struct {
	mu   sync.Mutex
	dir  string
	seen map[string]map[string]bool // filename -> record id
	enc  map[string]*json.Encoder
	out  []*os.File
}

// NewJSONLinesSink creates the output directory if needed and scans
// existing files to rebuild the duplicate index.
func NewJSONLinesSink(dir string) (*JSONLinesSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &JSONLinesSink{
		dir:  dir,
		seen: make(map[string]map[string]bool),
		enc:  make(map[string]*json.Encoder),
	}
	for name, idField := range map[string]string{
		contentsFile: "aweme_id",
		commentsFile: "comment_id",
		creatorsFile: "user_id",
	} {
		if err := s.scanExisting(name, idField); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// scanExisting reads one output file and records the ids already
// written. A missing file just means a fresh index.
func (s *JSONLinesSink) scanExisting(name, idField string) error {
	s.seen[name] = make(map[string]bool)

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to scan %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record map[string]json.RawMessage
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		var id string
		if err := json.Unmarshal(record[idField], &id); err != nil {
			continue
		}
		s.seen[name][id] = true
	}
	return scanner.Err()
}

func (s *JSONLinesSink) save(name, id string, record interface{}) error {
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[name][id] {
		return nil
	}

	enc := s.enc[name]
	if enc == nil {
		f, err := os.OpenFile(filepath.Join(s.dir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		s.out = append(s.out, f)
		enc = json.NewEncoder(f)
		s.enc[name] = enc
	}

	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("failed to write %s record: %w", name, err)
	}
	s.seen[name][id] = true
	return nil
}

func (s *JSONLinesSink) SaveContent(aweme *douyin.Aweme) error {
	return s.save(contentsFile, aweme.AwemeID, aweme)
}

func (s *JSONLinesSink) SaveComment(comment *douyin.Comment) error {
	return s.save(commentsFile, comment.CommentID, comment)
}

func (s *JSONLinesSink) SaveCreator(creator *douyin.Creator) error {
	return s.save(creatorsFile, creator.UserID, creator)
}

// Close closes the open output files.
func (s *JSONLinesSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, f := range s.out {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.out = nil
	s.enc = make(map[string]*json.Encoder)
	return firstErr
}

// Counts returns how many distinct records of each type have been
// written, for progress reporting.
func (s *JSONLinesSink) Counts() (contents, comments, creators int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen[contentsFile]), len(s.seen[commentsFile]), len(s.seen[creatorsFile])
}
