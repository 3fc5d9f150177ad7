package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dycrawler/pkg/douyin"
)

func testAweme(id string) *douyin.Aweme {
	return &douyin.Aweme{AwemeID: id, Title: "t-" + id, Desc: "d-" + id}
}

func readLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestNewSelectsKind(t *testing.T) {
	dir := t.TempDir()

	sink, err := New("", dir)
	require.NoError(t, err)
	assert.IsType(t, &JSONLinesSink{}, sink)
	require.NoError(t, sink.Close())

	sink, err = New("csv", dir)
	require.NoError(t, err)
	assert.IsType(t, &CSVSink{}, sink)
	require.NoError(t, sink.Close())

	_, err = New("parquet", dir)
	assert.Error(t, err)
}

func TestJSONLinesSinkDeduplicates(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLinesSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.SaveContent(testAweme("1")))
	require.NoError(t, sink.SaveContent(testAweme("1")))
	require.NoError(t, sink.SaveContent(testAweme("2")))
	require.NoError(t, sink.Close())

	records := readLines(t, filepath.Join(dir, contentsFile))
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0]["aweme_id"])
	assert.Equal(t, "2", records[1]["aweme_id"])
}

func TestJSONLinesSinkDedupSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewJSONLinesSink(dir)
	require.NoError(t, err)
	require.NoError(t, sink.SaveContent(testAweme("1")))
	require.NoError(t, sink.SaveComment(&douyin.Comment{CommentID: "c1", AwemeID: "1"}))
	require.NoError(t, sink.Close())

	// A second sink over the same directory must not duplicate rows.
	sink, err = NewJSONLinesSink(dir)
	require.NoError(t, err)
	require.NoError(t, sink.SaveContent(testAweme("1")))
	require.NoError(t, sink.SaveComment(&douyin.Comment{CommentID: "c1", AwemeID: "1"}))
	require.NoError(t, sink.SaveContent(testAweme("2")))
	require.NoError(t, sink.Close())

	assert.Len(t, readLines(t, filepath.Join(dir, contentsFile)), 2)
	assert.Len(t, readLines(t, filepath.Join(dir, commentsFile)), 1)
}

func TestJSONLinesSinkConcurrentSaves(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLinesSink(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%5))
			_ = sink.SaveContent(testAweme(id))
		}(i)
	}
	wg.Wait()
	require.NoError(t, sink.Close())

	assert.Len(t, readLines(t, filepath.Join(dir, contentsFile)), 5)
}

func TestJSONLinesSinkSkipsEmptyIDs(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLinesSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.SaveContent(&douyin.Aweme{}))
	require.NoError(t, sink.Close())

	_, err = os.Stat(filepath.Join(dir, contentsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewCSVSink(dir)
	require.NoError(t, err)
	require.NoError(t, sink.SaveContent(testAweme("1")))
	require.NoError(t, sink.Close())

	sink, err = NewCSVSink(dir)
	require.NoError(t, err)
	require.NoError(t, sink.SaveContent(testAweme("1"))) // dup, skipped
	require.NoError(t, sink.SaveContent(testAweme("2")))
	require.NoError(t, sink.Close())

	f, err := os.Open(filepath.Join(dir, "contents.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, contentHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestCSVSinkCreatorRow(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewCSVSink(dir)
	require.NoError(t, err)

	require.NoError(t, sink.SaveCreator(&douyin.Creator{
		UserID: "42", Nickname: "walker", Gender: "female", Fans: 1200,
	}))
	require.NoError(t, sink.Close())

	f, err := os.Open(filepath.Join(dir, "creators.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "42", rows[1][0])
	assert.Equal(t, "walker", rows[1][2])
	assert.Equal(t, "1200", rows[1][7])
}
