package checkpoint

import (
	"time"

	"github.com/google/uuid"
)

// Mode identifies which crawl flow a checkpoint belongs to. Cursors
// are mode-specific; a checkpoint only carries the ones its mode uses.
type Mode string

const (
	ModeSearch   Mode = "search"
	ModeDetail   Mode = "detail"
	ModeCreator  Mode = "creator"
	ModeHomefeed Mode = "homefeed"
)

// Item tracks per-item progress inside a checkpoint. The two flags
// advance independently: a crawled item may still have comment pages
// outstanding, and the comment cursor marks where to resume them.
type Item struct {
	ItemID          string `json:"item_id"`
	ItemCrawled     bool   `json:"item_crawled"`
	CommentsCrawled bool   `json:"comments_crawled"`
	CommentCursor   int64  `json:"comment_cursor"`
	Extra           string `json:"extra,omitempty"`
}

// Checkpoint is the resumable state of one crawl session.
type Checkpoint struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Mode     Mode   `json:"mode"`

	// Search mode cursors
	CurrentKeyword string `json:"current_keyword,omitempty"`
	CurrentPage    int    `json:"current_page,omitempty"`
	SearchID       string `json:"search_id,omitempty"`

	// Creator mode cursors
	CreatorID   string `json:"creator_id,omitempty"`
	CreatorPage int64  `json:"creator_page,omitempty"`

	// Homefeed mode cursor
	RefreshIndex int `json:"refresh_index,omitempty"`

	Items []*Item `json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// New creates a fresh checkpoint for the given platform and mode.
func New(platform string, mode Mode) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		ID:        uuid.NewString(),
		Platform:  platform,
		Mode:      mode,
		Items:     make([]*Item, 0),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Item returns the tracked item with the given ID, or nil.
func (c *Checkpoint) Item(itemID string) *Item {
	for _, item := range c.Items {
		if item.ItemID == itemID {
			return item
		}
	}
	return nil
}

// UpsertItem registers an item for tracking. If the item is already
// tracked its accumulated progress is kept untouched; only the extra
// payload is refreshed when non-empty.
func (c *Checkpoint) UpsertItem(itemID, extra string) *Item {
	if existing := c.Item(itemID); existing != nil {
		if extra != "" {
			existing.Extra = extra
		}
		return existing
	}
	item := &Item{ItemID: itemID, Extra: extra}
	c.Items = append(c.Items, item)
	return item
}

// MarkItemCrawled records that the item body has been fetched and
// stored. Unknown items are registered first.
func (c *Checkpoint) MarkItemCrawled(itemID string) {
	c.UpsertItem(itemID, "").ItemCrawled = true
}

// MarkCommentsCrawled records that all wanted comment pages for the
// item have been fetched. Comments done implies the item itself is
// done, so the item flag is set too.
func (c *Checkpoint) MarkCommentsCrawled(itemID string) {
	item := c.UpsertItem(itemID, "")
	item.ItemCrawled = true
	item.CommentsCrawled = true
}

// AdvanceCommentCursor moves the item's comment cursor forward. The
// cursor never goes backwards, so a stale concurrent update cannot
// rewind progress.
func (c *Checkpoint) AdvanceCommentCursor(itemID string, cursor int64) {
	item := c.UpsertItem(itemID, "")
	if cursor > item.CommentCursor {
		item.CommentCursor = cursor
	}
}

// IsItemDone reports whether both the item body and its comments have
// been fully crawled. wantComments toggles whether comment completion
// counts toward done.
func (c *Checkpoint) IsItemDone(itemID string, wantComments bool) bool {
	item := c.Item(itemID)
	if item == nil {
		return false
	}
	if !item.ItemCrawled {
		return false
	}
	if wantComments && !item.CommentsCrawled {
		return false
	}
	return true
}

// DoneCount returns how many tracked items are fully crawled.
func (c *Checkpoint) DoneCount(wantComments bool) int {
	count := 0
	for _, item := range c.Items {
		if c.IsItemDone(item.ItemID, wantComments) {
			count++
		}
	}
	return count
}

// Store persists checkpoints. Implementations must make Save atomic:
// a crash mid-write leaves the previous version intact, never a
// half-written one.
type Store interface {
	// Save writes the checkpoint, creating or replacing it.
	Save(cp *Checkpoint) error

	// Load returns the most recent checkpoint for the platform and
	// mode, or nil when none exists.
	Load(platform string, mode Mode) (*Checkpoint, error)

	// LoadByID returns the checkpoint with the given ID, or nil.
	LoadByID(id string) (*Checkpoint, error)

	// List returns all checkpoints for the platform, newest first.
	List(platform string) ([]*Checkpoint, error)

	// Delete removes the checkpoint with the given ID. Deleting a
	// missing checkpoint is not an error.
	Delete(id string) error

	// Close releases any resources held by the store.
	Close() error
}
