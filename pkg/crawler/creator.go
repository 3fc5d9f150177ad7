package crawler

import (
	"context"
	"errors"

	"dycrawler/pkg/checkpoint"
	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/retry"
)

// runCreator crawls each creator's profile and post timeline. On
// resume, creators before the checkpoint's current one are skipped
// and the current one continues from its saved timeline cursor.
func (c *Crawler) runCreator(ctx context.Context, cp *checkpoint.Checkpoint, creatorIDs []string) error {
	if len(creatorIDs) == 0 {
		return errors.New("creator mode requires at least one creator id")
	}

	list := creatorIDs
	resumeCursor := int64(0)
	if cp.CreatorID != "" {
		for i, id := range creatorIDs {
			if id == cp.CreatorID {
				list = creatorIDs[i:]
				resumeCursor = cp.CreatorPage
				break
			}
		}
	}

	for i, secUserID := range list {
		c.logger.InfoWithFields("crawling creator", map[string]interface{}{
			"creator_id": secUserID,
			"position":   i + 1,
			"total":      len(list),
		})

		startCursor := int64(0)
		if secUserID == cp.CreatorID {
			startCursor = resumeCursor
		}

		c.cpMu.Lock()
		cp.CreatorID = secUserID
		cp.CreatorPage = startCursor
		c.cpMu.Unlock()
		c.flush(cp)

		if err := c.crawlCreator(ctx, cp, secUserID, startCursor); err != nil {
			if ctx.Err() != nil {
				return err
			}
			if errs.Is(err, errs.KindIdentityExhausted) {
				return err
			}
			c.reportFailure(cp, err, map[string]interface{}{
				"operation":  "creator",
				"creator_id": secUserID,
			})
		}
	}
	return nil
}

func (c *Crawler) crawlCreator(ctx context.Context, cp *checkpoint.Checkpoint, secUserID string, cursor int64) error {
	creator, err := c.client.GetUserInfo(ctx, secUserID)
	if err != nil {
		return err
	}
	if creator != nil {
		if err := c.sink.SaveCreator(creator); err != nil {
			return err
		}
		c.stats.Creators.Add(1)
		c.logger.InfoWithFields("creator profile saved", map[string]interface{}{
			"creator_id": secUserID,
			"nickname":   creator.Nickname,
		})
	}

	seen := 0
	hasMore := 1
	for hasMore == 1 && seen < c.cfg.Crawl.MaxItems {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := c.client.GetUserPosts(ctx, secUserID, cursor)
		if err != nil {
			return err
		}
		hasMore = page.HasMore
		cursor = page.MaxCursor

		awemes := page.Awemes
		if len(awemes) == 0 {
			break
		}
		seen += c.processItems(ctx, cp, awemes)

		c.cpMu.Lock()
		cp.CreatorPage = cursor
		c.cpMu.Unlock()
		c.flush(cp)

		if err := retry.Wait(ctx, c.cfg.Crawl.PageInterval); err != nil {
			return err
		}
	}
	return nil
}
