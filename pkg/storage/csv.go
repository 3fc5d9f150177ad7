package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"dycrawler/pkg/douyin"
)

var (
	contentHeader = []string{"aweme_id", "aweme_type", "title", "desc",
		"create_time", "liked_count", "comment_count", "share_count",
		"collected_count", "aweme_url", "cover_url", "video_download_url",
		"source_keyword", "is_ai_generated", "user_id", "sec_uid",
		"nickname", "ip_location"}
	commentHeader = []string{"comment_id", "aweme_id", "content",
		"create_time", "sub_comment_count", "parent_comment_id",
		"like_count", "pictures", "ip_location", "user_id", "nickname"}
	creatorHeader = []string{"user_id", "sec_uid", "nickname", "ip_location",
		"desc", "gender", "follows", "fans", "interaction", "videos_count"}
)

// csvTable is one CSV output file plus its duplicate index.
type csvTable struct {
	file   *os.File
	writer *csv.Writer
	seen   map[string]bool
}

// CSVSink writes one CSV file per record type. The first column of
// every table is the record id; existing files are scanned so resumed
// runs do not duplicate rows.
type CSVSink struct {
	mu     sync.Mutex
	dir    string
	tables map[string]*csvTable
}

// NewCSVSink creates the output directory and the duplicate indexes.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &CSVSink{dir: dir, tables: make(map[string]*csvTable)}
	for _, name := range []string{"contents.csv", "comments.csv", "creators.csv"} {
		table, err := s.scanExisting(name)
		if err != nil {
			return nil, err
		}
		s.tables[name] = table
	}
	return s, nil
}

func (s *CSVSink) scanExisting(name string) (*csvTable, error) {
	table := &csvTable{seen: make(map[string]bool)}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return table, nil
		}
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue // header
		}
		table.seen[row[0]] = true
	}
	return table, nil
}

func (s *CSVSink) write(name string, header []string, id string, row []string) error {
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.tables[name]
	if table.seen[id] {
		return nil
	}

	if table.writer == nil {
		path := filepath.Join(s.dir, name)
		_, statErr := os.Stat(path)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
		table.file = f
		table.writer = csv.NewWriter(f)
		if os.IsNotExist(statErr) {
			if err := table.writer.Write(header); err != nil {
				return fmt.Errorf("failed to write %s header: %w", name, err)
			}
		}
	}

	if err := table.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write %s row: %w", name, err)
	}
	// Flush per row so a killed run loses at most the row in flight.
	table.writer.Flush()
	if err := table.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}

	table.seen[id] = true
	return nil
}

func (s *CSVSink) SaveContent(a *douyin.Aweme) error {
	return s.write("contents.csv", contentHeader, a.AwemeID, []string{
		a.AwemeID, strconv.Itoa(a.AwemeType), a.Title, a.Desc,
		strconv.FormatInt(a.CreateTime, 10),
		strconv.FormatInt(a.LikedCount, 10),
		strconv.FormatInt(a.CommentCount, 10),
		strconv.FormatInt(a.ShareCount, 10),
		strconv.FormatInt(a.CollectedCount, 10),
		a.AwemeURL, a.CoverURL, a.VideoDownloadURL,
		a.SourceKeyword, strconv.Itoa(a.IsAIGenerated),
		a.UserID, a.SecUID, a.Nickname, a.IPLocation,
	})
}

func (s *CSVSink) SaveComment(c *douyin.Comment) error {
	return s.write("comments.csv", commentHeader, c.CommentID, []string{
		c.CommentID, c.AwemeID, c.Content,
		strconv.FormatInt(c.CreateTime, 10),
		strconv.FormatInt(c.SubCommentCount, 10),
		c.ParentCommentID,
		strconv.FormatInt(c.LikeCount, 10),
		c.Pictures, c.IPLocation, c.UserID, c.Nickname,
	})
}

func (s *CSVSink) SaveCreator(c *douyin.Creator) error {
	return s.write("creators.csv", creatorHeader, c.UserID, []string{
		c.UserID, c.SecUID, c.Nickname, c.IPLocation, c.Desc, c.Gender,
		strconv.FormatInt(c.Follows, 10),
		strconv.FormatInt(c.Fans, 10),
		strconv.FormatInt(c.Interaction, 10),
		strconv.FormatInt(c.VideosCount, 10),
	})
}

// Close flushes and closes every open table.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, table := range s.tables {
		if table.writer != nil {
			table.writer.Flush()
			if err := table.writer.Error(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to flush %s: %w", name, err)
			}
		}
		if table.file != nil {
			if err := table.file.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			table.file = nil
			table.writer = nil
		}
	}
	return firstErr
}
