package crawler

import (
	"context"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/douyin"
	"dycrawler/pkg/retry"
)

// Feed pages are requested in fixed-size windows; the refresh index
// advances by the window size after each page.
const feedPageSize = 20

// runHomefeed pages through the recommendation feed from the
// checkpoint's refresh index until the item cap or the feed runs out.
func (c *Crawler) runHomefeed(ctx context.Context, cp *checkpoint.Checkpoint, tag douyin.FeedTag) error {
	refreshIndex := cp.RefreshIndex
	seen := 0

	for seen < c.cfg.Crawl.MaxItems {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.logger.DebugWithFields("fetching feed page", map[string]interface{}{
			"refresh_index": refreshIndex,
		})

		feed, err := c.client.GetHomefeed(ctx, tag, refreshIndex, feedPageSize)
		if err != nil {
			return err
		}
		if feed.StatusCode != 0 {
			c.logger.InfoWithFields("feed returned non-zero status, stopping", map[string]interface{}{
				"status": feed.StatusCode,
			})
			break
		}

		awemes := feed.Awemes
		if len(awemes) == 0 {
			c.logger.Info("no more feed content")
			break
		}

		seen += c.processItems(ctx, cp, awemes)
		refreshIndex += feedPageSize

		c.cpMu.Lock()
		cp.RefreshIndex = refreshIndex
		c.cpMu.Unlock()
		c.flush(cp)

		if err := retry.Wait(ctx, c.cfg.Crawl.PageInterval); err != nil {
			return err
		}
	}
	return nil
}
