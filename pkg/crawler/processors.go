package crawler

import (
	"context"
	"sync"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/douyin"
	"dycrawler/pkg/retry"
)

// processItems fans one page's items out as concurrent tasks and
// waits for the whole wave before the caller moves to the next page.
// Returns how many items the page contributed toward the run cap.
func (c *Crawler) processItems(ctx context.Context, cp *checkpoint.Checkpoint, awemes []*douyin.Aweme) int {
	var wg sync.WaitGroup
	for _, aweme := range awemes {
		aweme := aweme
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.processItem(ctx, cp, aweme)
		}()
	}
	wg.Wait()
	c.flush(cp)
	return len(awemes)
}

// processItem stores one already-fetched item and then walks its
// comment thread. Items the checkpoint marks done are not re-stored.
func (c *Crawler) processItem(ctx context.Context, cp *checkpoint.Checkpoint, aweme *douyin.Aweme) {
	itemID := aweme.AwemeID

	if c.itemDone(cp, itemID) {
		c.stats.Skipped.Add(1)
	} else {
		if err := c.sink.SaveContent(aweme); err != nil {
			c.logger.ErrorWithFields("failed to store item", map[string]interface{}{
				"item_id": itemID,
				"error":   err.Error(),
			})
			return
		}
		c.markItemCrawled(cp, itemID)
		c.stats.Items.Add(1)
	}

	if c.cfg.Crawl.FetchComments {
		c.processComments(ctx, cp, itemID)
	}
}

// processDetailItem fetches one item's detail through the item gate,
// stores it, and then walks its comment thread.
func (c *Crawler) processDetailItem(ctx context.Context, cp *checkpoint.Checkpoint, itemID string) {
	if c.itemDone(cp, itemID) {
		c.stats.Skipped.Add(1)
	} else {
		aweme, err := c.fetchDetail(ctx, itemID)
		if err != nil {
			c.logger.ErrorWithFields("failed to fetch item detail", map[string]interface{}{
				"item_id": itemID,
				"error":   err.Error(),
			})
			return
		}
		if aweme == nil {
			c.logger.WarnWithFields("item detail not found", map[string]interface{}{
				"item_id": itemID,
			})
			return
		}
		if err := c.sink.SaveContent(aweme); err != nil {
			c.logger.ErrorWithFields("failed to store item", map[string]interface{}{
				"item_id": itemID,
				"error":   err.Error(),
			})
			return
		}
		c.markItemCrawled(cp, itemID)
		c.stats.Items.Add(1)
	}

	if c.cfg.Crawl.FetchComments {
		c.processComments(ctx, cp, itemID)
	}
}

func (c *Crawler) fetchDetail(ctx context.Context, itemID string) (*douyin.Aweme, error) {
	if err := c.itemGate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.itemGate.Release()
	return c.client.GetAwemeByID(ctx, itemID)
}

// processComments walks one item's comment thread from its saved
// cursor to the end, persisting the cursor after every page so an
// interrupted run resumes mid-thread.
func (c *Crawler) processComments(ctx context.Context, cp *checkpoint.Checkpoint, itemID string) {
	if c.commentsDone(cp, itemID) {
		return
	}

	if err := c.commentGate.Acquire(ctx); err != nil {
		return
	}
	defer c.commentGate.Release()

	cursor := c.commentCursor(cp, itemID)
	fetched := 0
	hasMore := 1

	for hasMore == 1 {
		if ctx.Err() != nil {
			return
		}

		comments, page, err := c.client.GetAwemeComments(ctx, itemID, cursor)
		if err != nil {
			// The cursor stays where it was; a later run resumes here.
			c.logger.ErrorWithFields("failed to fetch comment page", map[string]interface{}{
				"item_id": itemID,
				"cursor":  cursor,
				"error":   err.Error(),
			})
			return
		}

		hasMore = page.HasMore
		cursor = page.Cursor
		c.advanceCommentCursor(cp, itemID, cursor)

		for _, comment := range comments {
			if err := c.sink.SaveComment(comment); err != nil {
				c.logger.ErrorWithFields("failed to store comment", map[string]interface{}{
					"item_id":    itemID,
					"comment_id": comment.CommentID,
					"error":      err.Error(),
				})
				continue
			}
			c.stats.Comments.Add(1)
		}
		fetched += len(comments)

		if limit := c.cfg.Crawl.MaxCommentsPerItem; limit > 0 && fetched >= limit {
			c.logger.InfoWithFields("comment limit reached", map[string]interface{}{
				"item_id": itemID,
				"fetched": fetched,
				"limit":   limit,
			})
			break
		}

		if c.cfg.Crawl.FetchSubComments {
			c.processSubComments(ctx, itemID, comments)
		}

		if hasMore == 1 {
			if err := retry.Wait(ctx, c.cfg.Crawl.PageInterval); err != nil {
				return
			}
		}
	}

	c.markCommentsCrawled(cp, itemID)
}

// processSubComments pages through the replies of every top-level
// comment that has any.
func (c *Crawler) processSubComments(ctx context.Context, itemID string, comments []*douyin.Comment) {
	for _, comment := range comments {
		if comment.SubCommentCount == 0 {
			continue
		}

		cursor := int64(0)
		hasMore := 1
		for hasMore == 1 {
			if ctx.Err() != nil {
				return
			}

			subs, page, err := c.client.GetSubComments(ctx, comment.CommentID, cursor, itemID)
			if err != nil {
				c.logger.ErrorWithFields("failed to fetch sub-comment page", map[string]interface{}{
					"item_id":    itemID,
					"comment_id": comment.CommentID,
					"cursor":     cursor,
					"error":      err.Error(),
				})
				return
			}

			hasMore = page.HasMore
			cursor = page.Cursor

			for _, sub := range subs {
				if err := c.sink.SaveComment(sub); err != nil {
					continue
				}
				c.stats.Comments.Add(1)
			}

			if hasMore == 1 {
				if err := retry.Wait(ctx, c.cfg.Crawl.PageInterval); err != nil {
					return
				}
			}
		}
	}
}
