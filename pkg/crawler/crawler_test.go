package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/config"
	"dycrawler/pkg/douyin"
	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/logger"
)

// memSink collects records in memory.
type memSink struct {
	mu       sync.Mutex
	contents []*douyin.Aweme
	comments []*douyin.Comment
	creators []*douyin.Creator
}

func (s *memSink) SaveContent(a *douyin.Aweme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contents = append(s.contents, a)
	return nil
}

func (s *memSink) SaveComment(c *douyin.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, c)
	return nil
}

func (s *memSink) SaveCreator(c *douyin.Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creators = append(s.creators, c)
	return nil
}

func (s *memSink) Close() error { return nil }

func (s *memSink) contentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.contents))
	for _, a := range s.contents {
		ids = append(ids, a.AwemeID)
	}
	return ids
}

// fakeFetcher implements Fetcher with pluggable behaviors.
type fakeFetcher struct {
	mu          sync.Mutex
	searchFn    func(keyword string, offset int, searchID string) (*douyin.SearchPage, error)
	detailFn    func(id string) (*douyin.Aweme, error)
	commentsFn  func(id string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error)
	subFn       func(commentID string, cursor int64, awemeID string) ([]*douyin.Comment, *douyin.CommentsResponse, error)
	userFn      func(id string) (*douyin.Creator, error)
	postsFn     func(id string, cursor int64) (*douyin.PostsPage, error)
	feedFn      func(refreshIndex int) (*douyin.FeedPage, error)
	detailCalls []string
	searchCalls []int
	userCalls   []string
	feedCalls   []int
}

func (f *fakeFetcher) BindIdentity(context.Context) error { return nil }

func (f *fakeFetcher) SearchByKeyword(_ context.Context, keyword string, offset int, _ douyin.SearchSort, _ douyin.PublishTime, searchID string) (*douyin.SearchPage, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, offset)
	f.mu.Unlock()
	if f.searchFn == nil {
		return &douyin.SearchPage{}, nil
	}
	return f.searchFn(keyword, offset, searchID)
}

func (f *fakeFetcher) GetAwemeByID(_ context.Context, id string) (*douyin.Aweme, error) {
	f.mu.Lock()
	f.detailCalls = append(f.detailCalls, id)
	f.mu.Unlock()
	if f.detailFn == nil {
		return &douyin.Aweme{AwemeID: id}, nil
	}
	return f.detailFn(id)
}

func (f *fakeFetcher) GetAwemeComments(_ context.Context, id string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
	if f.commentsFn == nil {
		return nil, &douyin.CommentsResponse{}, nil
	}
	return f.commentsFn(id, cursor)
}

func (f *fakeFetcher) GetSubComments(_ context.Context, commentID string, cursor int64, awemeID string) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
	if f.subFn == nil {
		return nil, &douyin.CommentsResponse{}, nil
	}
	return f.subFn(commentID, cursor, awemeID)
}

func (f *fakeFetcher) GetUserInfo(_ context.Context, id string) (*douyin.Creator, error) {
	f.mu.Lock()
	f.userCalls = append(f.userCalls, id)
	f.mu.Unlock()
	if f.userFn == nil {
		return &douyin.Creator{UserID: id}, nil
	}
	return f.userFn(id)
}

func (f *fakeFetcher) GetUserPosts(_ context.Context, id string, cursor int64) (*douyin.PostsPage, error) {
	if f.postsFn == nil {
		return &douyin.PostsPage{}, nil
	}
	return f.postsFn(id, cursor)
}

func (f *fakeFetcher) GetHomefeed(_ context.Context, _ douyin.FeedTag, refreshIndex, _ int) (*douyin.FeedPage, error) {
	f.mu.Lock()
	f.feedCalls = append(f.feedCalls, refreshIndex)
	f.mu.Unlock()
	if f.feedFn == nil {
		return &douyin.FeedPage{}, nil
	}
	return f.feedFn(refreshIndex)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Crawl.PageInterval = 0
	cfg.Crawl.FetchComments = false
	cfg.Crawl.MaxItems = 40
	return cfg
}

func newTestCrawler(cfg *config.Config, f Fetcher, sink *memSink) *Crawler {
	return New(cfg, f, sink, nil, logger.NewNopLogger())
}

func awemePage(ids ...string) []*douyin.Aweme {
	awemes := make([]*douyin.Aweme, 0, len(ids))
	for _, id := range ids {
		awemes = append(awemes, &douyin.Aweme{AwemeID: id})
	}
	return awemes
}

func TestGateBoundsConcurrency(t *testing.T) {
	gate := NewGate(3)
	var inFlight, peak atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, gate.Acquire(context.Background())) {
				return
			}
			defer gate.Release()

			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestGateAcquireObservesCancellation(t *testing.T) {
	gate := NewGate(1)
	require.NoError(t, gate.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, gate.Acquire(ctx))
	gate.Release()
}

func TestSearchSkipsItemsAlreadyDone(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 20

	f := &fakeFetcher{searchFn: func(_ string, offset int, _ string) (*douyin.SearchPage, error) {
		if offset > 0 {
			return &douyin.SearchPage{}, nil
		}
		return &douyin.SearchPage{Awemes: awemePage("x", "y"), SearchID: "s1"}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeSearch)
	cp.MarkItemCrawled("x")

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"travel"}))

	assert.Equal(t, []string{"y"}, sink.contentIDs())
	assert.Equal(t, int64(1), c.stats.Skipped.Load())
	assert.Equal(t, int64(1), c.stats.Items.Load())
}

func TestSearchPaginatesAndThreadsSessionID(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 40

	var sessionIDs []string
	f := &fakeFetcher{}
	f.searchFn = func(_ string, offset int, searchID string) (*douyin.SearchPage, error) {
		f.mu.Lock()
		sessionIDs = append(sessionIDs, searchID)
		f.mu.Unlock()
		ids := make([]string, 20)
		for i := range ids {
			ids[i] = "item-" + string(rune('a'+offset/20)) + "-" + string(rune('a'+i))
		}
		return &douyin.SearchPage{Awemes: awemePage(ids...), SearchID: "session-next"}, nil
	}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)
	cp := checkpoint.New("douyin", checkpoint.ModeSearch)

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"travel"}))

	assert.Equal(t, []int{0, 20}, f.searchCalls)
	assert.Equal(t, []string{"", "session-next"}, sessionIDs)
	assert.Equal(t, "travel", cp.CurrentKeyword)
	assert.Equal(t, 3, cp.CurrentPage)
	assert.Len(t, sink.contents, 40)
	for _, a := range sink.contents {
		assert.Equal(t, "travel", a.SourceKeyword)
	}
}

func TestSearchResumesSavedPage(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 40

	f := &fakeFetcher{searchFn: func(_ string, offset int, _ string) (*douyin.SearchPage, error) {
		return &douyin.SearchPage{Awemes: awemePage("late-1"), SearchID: "s"}, nil
	}}
	c := newTestCrawler(cfg, f, &memSink{})

	cp := checkpoint.New("douyin", checkpoint.ModeSearch)
	cp.CurrentKeyword = "travel"
	cp.CurrentPage = 2
	cp.SearchID = "saved-session"

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"travel"}))

	// Resumed at page 2: first request uses the saved offset.
	require.NotEmpty(t, f.searchCalls)
	assert.Equal(t, 20, f.searchCalls[0])
}

func TestSearchStartsFromConfiguredPage(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.StartPage = 2
	cfg.Crawl.MaxItems = 60

	f := &fakeFetcher{searchFn: func(_ string, offset int, _ string) (*douyin.SearchPage, error) {
		ids := make([]string, 20)
		for i := range ids {
			ids[i] = "deep-" + string(rune('a'+i))
		}
		return &douyin.SearchPage{Awemes: awemePage(ids...), SearchID: "s"}, nil
	}}
	c := newTestCrawler(cfg, f, &memSink{})
	cp := checkpoint.New("douyin", checkpoint.ModeSearch)

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"travel"}))

	// Two configured start pages skipped: the first request lands on
	// page 3, and the skipped entries count against the item limit.
	assert.Equal(t, []int{40}, f.searchCalls)
}

func TestSearchCheckpointOverridesStartPage(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.StartPage = 4
	cfg.Crawl.MaxItems = 60

	f := &fakeFetcher{searchFn: func(_ string, offset int, _ string) (*douyin.SearchPage, error) {
		if offset > 20 {
			return &douyin.SearchPage{}, nil
		}
		return &douyin.SearchPage{Awemes: awemePage("only"), SearchID: "s"}, nil
	}}
	c := newTestCrawler(cfg, f, &memSink{})

	cp := checkpoint.New("douyin", checkpoint.ModeSearch)
	cp.CurrentKeyword = "travel"
	cp.CurrentPage = 2

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"travel"}))

	require.NotEmpty(t, f.searchCalls)
	assert.Equal(t, 20, f.searchCalls[0])
}

func TestKeywordFailureDoesNotStopOtherKeywords(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 20

	f := &fakeFetcher{searchFn: func(keyword string, offset int, _ string) (*douyin.SearchPage, error) {
		if keyword == "bad" {
			return nil, errs.Newf(errs.KindTransport, 502, "gateway exploded")
		}
		if offset > 0 {
			return &douyin.SearchPage{}, nil
		}
		return &douyin.SearchPage{Awemes: awemePage("ok-1")}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)
	cp := checkpoint.New("douyin", checkpoint.ModeSearch)

	require.NoError(t, c.runSearch(context.Background(), cp, []string{"bad", "good"}))
	assert.Equal(t, []string{"ok-1"}, sink.contentIDs())
}

func TestIdentityExhaustionAbortsRun(t *testing.T) {
	cfg := testConfig()

	f := &fakeFetcher{searchFn: func(string, int, string) (*douyin.SearchPage, error) {
		return nil, errs.Newf(errs.KindIdentityExhausted, 0, "pool drained")
	}}
	c := newTestCrawler(cfg, f, &memSink{})
	cp := checkpoint.New("douyin", checkpoint.ModeSearch)

	err := c.runSearch(context.Background(), cp, []string{"first", "second"})
	require.Error(t, err)
	assert.Equal(t, errs.KindIdentityExhausted, errs.KindOf(err))
	// The second keyword is never attempted.
	assert.Len(t, f.searchCalls, 1)
}

func TestDetailNeverRefetchesDoneItems(t *testing.T) {
	cfg := testConfig()
	f := &fakeFetcher{}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	cp.MarkItemCrawled("done-1")

	require.NoError(t, c.runDetail(context.Background(), cp, []string{"done-1", "new-1"}))

	assert.Equal(t, []string{"new-1"}, f.detailCalls)
	assert.Equal(t, []string{"new-1"}, sink.contentIDs())
	assert.True(t, cp.IsItemDone("new-1", false))
}

func TestDetailConcurrencyBounded(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItemWorkers = 2

	var inFlight, peak atomic.Int32
	f := &fakeFetcher{detailFn: func(id string) (*douyin.Aweme, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return &douyin.Aweme{AwemeID: id}, nil
	}}
	c := newTestCrawler(cfg, f, &memSink{})
	cp := checkpoint.New("douyin", checkpoint.ModeDetail)

	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	require.NoError(t, c.runDetail(context.Background(), cp, ids))

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Len(t, f.detailCalls, len(ids))
}

func TestCommentsResumeFromSavedCursor(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.FetchComments = true

	var cursors []int64
	f := &fakeFetcher{commentsFn: func(id string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
		cursors = append(cursors, cursor)
		if cursor >= 60 {
			return nil, &douyin.CommentsResponse{Cursor: 60, HasMore: 0}, nil
		}
		comments := []*douyin.Comment{{CommentID: "c1", AwemeID: id}}
		return comments, &douyin.CommentsResponse{Cursor: 60, HasMore: 1}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	cp.MarkItemCrawled("v1")
	cp.AdvanceCommentCursor("v1", 40)

	require.NoError(t, c.runDetail(context.Background(), cp, []string{"v1"}))

	assert.Equal(t, []int64{40, 60}, cursors)
	assert.Len(t, sink.comments, 1)
	assert.True(t, cp.IsItemDone("v1", true))
	assert.Equal(t, int64(60), cp.Item("v1").CommentCursor)
}

func TestCommentsDoneItemsNotRefetched(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.FetchComments = true

	var commentCalls atomic.Int32
	f := &fakeFetcher{commentsFn: func(string, int64) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
		commentCalls.Add(1)
		return nil, &douyin.CommentsResponse{}, nil
	}}
	c := newTestCrawler(cfg, f, &memSink{})

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	cp.MarkCommentsCrawled("v1")

	require.NoError(t, c.runDetail(context.Background(), cp, []string{"v1"}))
	assert.Equal(t, int32(0), commentCalls.Load())
}

func TestCommentLimitStopsPagination(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.FetchComments = true
	cfg.Crawl.MaxCommentsPerItem = 2

	var pages atomic.Int32
	f := &fakeFetcher{commentsFn: func(id string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
		n := pages.Add(1)
		comments := []*douyin.Comment{
			{CommentID: "c" + string(rune('0'+n)), AwemeID: id},
			{CommentID: "d" + string(rune('0'+n)), AwemeID: id},
		}
		return comments, &douyin.CommentsResponse{Cursor: cursor + 20, HasMore: 1}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	require.NoError(t, c.runDetail(context.Background(), cp, []string{"v1"}))

	assert.Equal(t, int32(1), pages.Load())
	assert.Len(t, sink.comments, 2)
}

func TestSubCommentsFetchedWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.FetchComments = true
	cfg.Crawl.FetchSubComments = true

	f := &fakeFetcher{}
	f.commentsFn = func(id string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
		if cursor > 0 {
			return nil, &douyin.CommentsResponse{Cursor: cursor, HasMore: 0}, nil
		}
		comments := []*douyin.Comment{
			{CommentID: "top-1", AwemeID: id, SubCommentCount: 2},
			{CommentID: "top-2", AwemeID: id},
		}
		return comments, &douyin.CommentsResponse{Cursor: 20, HasMore: 0}, nil
	}
	var subCalls []string
	f.subFn = func(commentID string, cursor int64, awemeID string) ([]*douyin.Comment, *douyin.CommentsResponse, error) {
		f.mu.Lock()
		subCalls = append(subCalls, commentID)
		f.mu.Unlock()
		subs := []*douyin.Comment{{CommentID: "sub-1", AwemeID: awemeID, ParentCommentID: commentID}}
		return subs, &douyin.CommentsResponse{Cursor: 10, HasMore: 0}, nil
	}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	require.NoError(t, c.runDetail(context.Background(), cp, []string{"v1"}))

	// Only the top-level comment with replies gets a sub fetch.
	assert.Equal(t, []string{"top-1"}, subCalls)
	assert.Len(t, sink.comments, 3)
}

func TestCreatorResumeSkipsEarlierCreators(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 20

	var postCursors []int64
	f := &fakeFetcher{postsFn: func(id string, cursor int64) (*douyin.PostsPage, error) {
		postCursors = append(postCursors, cursor)
		return &douyin.PostsPage{Awemes: awemePage(id + "-post"), MaxCursor: cursor + 100, HasMore: 0}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeCreator)
	cp.CreatorID = "c2"
	cp.CreatorPage = 500

	require.NoError(t, c.runCreator(context.Background(), cp, []string{"c1", "c2", "c3"}))

	// c1 is behind the checkpoint; c2 resumes from its saved cursor.
	assert.Equal(t, []string{"c2", "c3"}, f.userCalls)
	assert.Equal(t, int64(500), postCursors[0])
	assert.Equal(t, int64(0), postCursors[1])
	assert.Len(t, sink.creators, 2)
}

func TestCreatorTimelinePaginates(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 40

	f := &fakeFetcher{postsFn: func(id string, cursor int64) (*douyin.PostsPage, error) {
		if cursor >= 200 {
			return &douyin.PostsPage{MaxCursor: cursor, HasMore: 0}, nil
		}
		return &douyin.PostsPage{
			Awemes:    awemePage(id + "-" + string(rune('a'+cursor/100))),
			MaxCursor: cursor + 100,
			HasMore:   1,
		}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeCreator)
	require.NoError(t, c.runCreator(context.Background(), cp, []string{"c1"}))

	assert.Len(t, sink.contents, 2)
	assert.Equal(t, int64(200), cp.CreatorPage)
}

func TestHomefeedAdvancesRefreshIndex(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 40

	f := &fakeFetcher{feedFn: func(refreshIndex int) (*douyin.FeedPage, error) {
		if refreshIndex >= 40 {
			return &douyin.FeedPage{StatusCode: 1}, nil
		}
		ids := make([]string, 20)
		for i := range ids {
			ids[i] = "feed-" + string(rune('a'+refreshIndex/20)) + "-" + string(rune('a'+i))
		}
		return &douyin.FeedPage{Awemes: awemePage(ids...)}, nil
	}}
	sink := &memSink{}
	c := newTestCrawler(cfg, f, sink)

	cp := checkpoint.New("douyin", checkpoint.ModeHomefeed)
	require.NoError(t, c.runHomefeed(context.Background(), cp, douyin.FeedTagAll))

	assert.Equal(t, []int{0, 20}, f.feedCalls)
	assert.Equal(t, 40, cp.RefreshIndex)
	assert.Len(t, sink.contents, 40)
}

func TestRunPersistsCheckpointAcrossRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.MaxItems = 20

	store, err := checkpoint.NewFileStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	f := &fakeFetcher{searchFn: func(_ string, offset int, _ string) (*douyin.SearchPage, error) {
		if offset > 0 {
			return &douyin.SearchPage{}, nil
		}
		return &douyin.SearchPage{Awemes: awemePage("x", "y")}, nil
	}}
	sink := &memSink{}
	c := New(cfg, f, sink, store, logger.NewNopLogger())

	opts := Options{Mode: checkpoint.ModeSearch, Keywords: []string{"travel"}}
	require.NoError(t, c.Run(context.Background(), opts))
	assert.Len(t, sink.contents, 2)

	// The second run resumes the persisted checkpoint past the finished
	// pages: no new requests, nothing re-stored.
	calls := len(f.searchCalls)
	sink2 := &memSink{}
	c2 := New(cfg, f, sink2, store, logger.NewNopLogger())
	require.NoError(t, c2.Run(context.Background(), opts))
	assert.Empty(t, sink2.contents)
	assert.Len(t, f.searchCalls, calls)
}

func TestRunUnknownModeFails(t *testing.T) {
	c := newTestCrawler(testConfig(), &fakeFetcher{}, &memSink{})
	err := c.Run(context.Background(), Options{Mode: checkpoint.Mode("firehose")})
	assert.Error(t, err)
}

func TestRunResumeByExplicitCheckpointID(t *testing.T) {
	cfg := testConfig()
	store, err := checkpoint.NewFileStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	cp := checkpoint.New("douyin", checkpoint.ModeDetail)
	cp.MarkItemCrawled("done-1")
	require.NoError(t, store.Save(cp))

	f := &fakeFetcher{}
	c := New(cfg, f, &memSink{}, store, logger.NewNopLogger())

	opts := Options{
		Mode:         checkpoint.ModeDetail,
		DetailIDs:    []string{"done-1", "new-1"},
		CheckpointID: cp.ID,
	}
	require.NoError(t, c.Run(context.Background(), opts))
	assert.Equal(t, []string{"new-1"}, f.detailCalls)
}

func TestRunMissingCheckpointIDFails(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir(), logger.NewNopLogger())
	require.NoError(t, err)

	c := New(testConfig(), &fakeFetcher{}, &memSink{}, store, logger.NewNopLogger())
	err = c.Run(context.Background(), Options{
		Mode:         checkpoint.ModeSearch,
		Keywords:     []string{"travel"},
		CheckpointID: "no-such-id",
	})
	assert.Error(t, err)
}
