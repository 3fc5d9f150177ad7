package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/config"
	"dycrawler/pkg/douyin"
	"dycrawler/pkg/logger"
	"dycrawler/pkg/storage"
)

// Fetcher is the request-client surface the mode handlers consume.
type Fetcher interface {
	BindIdentity(ctx context.Context) error
	SearchByKeyword(ctx context.Context, keyword string, offset int, sort douyin.SearchSort, publish douyin.PublishTime, searchID string) (*douyin.SearchPage, error)
	GetAwemeByID(ctx context.Context, awemeID string) (*douyin.Aweme, error)
	GetAwemeComments(ctx context.Context, awemeID string, cursor int64) ([]*douyin.Comment, *douyin.CommentsResponse, error)
	GetSubComments(ctx context.Context, commentID string, cursor int64, awemeID string) ([]*douyin.Comment, *douyin.CommentsResponse, error)
	GetUserInfo(ctx context.Context, secUserID string) (*douyin.Creator, error)
	GetUserPosts(ctx context.Context, secUserID string, maxCursor int64) (*douyin.PostsPage, error)
	GetHomefeed(ctx context.Context, tag douyin.FeedTag, refreshIndex, count int) (*douyin.FeedPage, error)
}

// Options select what one run crawls.
type Options struct {
	Mode         checkpoint.Mode
	Keywords     []string // search mode
	DetailIDs    []string // detail mode
	CreatorIDs   []string // creator mode
	FeedTag      douyin.FeedTag
	CheckpointID string // resume a specific checkpoint; empty means latest
}

// Stats are the run's progress counters.
type Stats struct {
	Items    atomic.Int64
	Comments atomic.Int64
	Creators atomic.Int64
	Skipped  atomic.Int64
}

func (s *Stats) snapshot() map[string]interface{} {
	return map[string]interface{}{
		"items_saved":    s.Items.Load(),
		"comments_saved": s.Comments.Load(),
		"creators_saved": s.Creators.Load(),
		"items_skipped":  s.Skipped.Load(),
	}
}

// Crawler wires the request client, the checkpoint store and the
// output sink into the four crawl modes. Page loops run sequentially;
// item and comment work within a page fans out through the gates.
type Crawler struct {
	cfg    *config.Config
	client Fetcher
	sink   storage.Sink
	store  checkpoint.Store // nil when checkpointing is disabled
	logger logger.Logger

	itemGate    *Gate
	commentGate *Gate

	// cpMu serializes all in-memory checkpoint mutations from
	// concurrent item and comment tasks.
	cpMu  sync.Mutex
	stats Stats
}

// New creates a crawler. A nil store disables checkpoint persistence;
// progress is then tracked in memory for the lifetime of the run only.
func New(cfg *config.Config, client Fetcher, sink storage.Sink, store checkpoint.Store, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		cfg:         cfg,
		client:      client,
		sink:        sink,
		store:       store,
		logger:      log,
		itemGate:    NewGate(cfg.Crawl.MaxItemWorkers),
		commentGate: NewGate(cfg.Crawl.MaxCommentWorkers),
	}
}

// Run executes one crawl. The checkpoint is flushed before Run
// returns, whether the handler finished, failed, or was cancelled.
func (c *Crawler) Run(ctx context.Context, opts Options) error {
	cp, err := c.loadOrCreate(opts.Mode, opts.CheckpointID)
	if err != nil {
		return err
	}

	if err := c.client.BindIdentity(ctx); err != nil {
		return err
	}

	var runErr error
	switch opts.Mode {
	case checkpoint.ModeSearch:
		runErr = c.runSearch(ctx, cp, opts.Keywords)
	case checkpoint.ModeDetail:
		runErr = c.runDetail(ctx, cp, opts.DetailIDs)
	case checkpoint.ModeCreator:
		runErr = c.runCreator(ctx, cp, opts.CreatorIDs)
	case checkpoint.ModeHomefeed:
		runErr = c.runHomefeed(ctx, cp, opts.FeedTag)
	default:
		runErr = fmt.Errorf("unknown crawl mode %q", opts.Mode)
	}

	c.flush(cp)
	c.logger.InfoWithFields("crawl finished", c.stats.snapshot())
	return runErr
}

// ProgressSnapshot returns the run's counters, for the CLI's exit
// report.
func (c *Crawler) ProgressSnapshot() map[string]interface{} {
	return c.stats.snapshot()
}

func (c *Crawler) loadOrCreate(mode checkpoint.Mode, id string) (*checkpoint.Checkpoint, error) {
	platform := c.cfg.Platform.Name

	if c.store == nil {
		return checkpoint.New(platform, mode), nil
	}

	if id != "" {
		cp, err := c.store.LoadByID(id)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			return nil, fmt.Errorf("checkpoint %s not found", id)
		}
		c.logger.InfoWithFields("resuming from checkpoint", map[string]interface{}{
			"checkpoint_id": cp.ID,
			"mode":          string(cp.Mode),
			"items_tracked": len(cp.Items),
		})
		return cp, nil
	}

	cp, err := c.store.Load(platform, mode)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		c.logger.InfoWithFields("resuming from latest checkpoint", map[string]interface{}{
			"checkpoint_id": cp.ID,
			"items_tracked": len(cp.Items),
		})
		return cp, nil
	}

	cp = checkpoint.New(platform, mode)
	if err := c.store.Save(cp); err != nil {
		return nil, err
	}
	c.logger.InfoWithFields("created new checkpoint", map[string]interface{}{
		"checkpoint_id": cp.ID,
		"mode":          string(mode),
	})
	return cp, nil
}

// flush persists the checkpoint, best-effort. Failures are logged but
// never interrupt the crawl.
func (c *Crawler) flush(cp *checkpoint.Checkpoint) {
	if c.store == nil {
		return
	}
	c.cpMu.Lock()
	defer c.cpMu.Unlock()
	if err := c.store.Save(cp); err != nil {
		c.logger.ErrorWithFields("failed to persist checkpoint", map[string]interface{}{
			"checkpoint_id": cp.ID,
			"error":         err.Error(),
		})
	}
}

func (c *Crawler) itemDone(cp *checkpoint.Checkpoint, itemID string) bool {
	c.cpMu.Lock()
	defer c.cpMu.Unlock()
	return cp.IsItemDone(itemID, false)
}

func (c *Crawler) commentsDone(cp *checkpoint.Checkpoint, itemID string) bool {
	c.cpMu.Lock()
	defer c.cpMu.Unlock()
	return cp.IsItemDone(itemID, true)
}

func (c *Crawler) commentCursor(cp *checkpoint.Checkpoint, itemID string) int64 {
	c.cpMu.Lock()
	defer c.cpMu.Unlock()
	if item := cp.Item(itemID); item != nil {
		return item.CommentCursor
	}
	return 0
}

func (c *Crawler) markItemCrawled(cp *checkpoint.Checkpoint, itemID string) {
	c.cpMu.Lock()
	cp.MarkItemCrawled(itemID)
	c.cpMu.Unlock()
	c.flush(cp)
}

func (c *Crawler) markCommentsCrawled(cp *checkpoint.Checkpoint, itemID string) {
	c.cpMu.Lock()
	cp.MarkCommentsCrawled(itemID)
	c.cpMu.Unlock()
	c.flush(cp)
}

func (c *Crawler) advanceCommentCursor(cp *checkpoint.Checkpoint, itemID string, cursor int64) {
	c.cpMu.Lock()
	cp.AdvanceCommentCursor(itemID, cursor)
	c.cpMu.Unlock()
	c.flush(cp)
}

// reportFailure logs an unrecoverable handler-level error with full
// context plus a checkpoint snapshot, so an operator can see exactly
// where the crawl stopped.
func (c *Crawler) reportFailure(cp *checkpoint.Checkpoint, err error, fields map[string]interface{}) {
	c.cpMu.Lock()
	fields["error"] = err.Error()
	fields["checkpoint_id"] = cp.ID
	fields["items_done"] = cp.DoneCount(false)
	fields["comments_done"] = cp.DoneCount(true)
	c.cpMu.Unlock()
	for key, value := range c.stats.snapshot() {
		fields[key] = value
	}
	c.logger.ErrorWithFields("crawl unit failed", fields)
}
