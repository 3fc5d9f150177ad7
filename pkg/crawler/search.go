package crawler

import (
	"context"
	"errors"

	"dycrawler/pkg/checkpoint"
	"dycrawler/pkg/douyin"
	errs "dycrawler/pkg/errors"
	"dycrawler/pkg/retry"
)

// The platform returns about this many entries per search page; the
// page cursor and the resume arithmetic are both based on it.
const searchPageSize = 20

// runSearch crawls every configured keyword. One keyword's failure
// stops that keyword only; identity exhaustion or cancellation stops
// the whole run.
func (c *Crawler) runSearch(ctx context.Context, cp *checkpoint.Checkpoint, keywords []string) error {
	if len(keywords) == 0 {
		return errors.New("search mode requires at least one keyword")
	}

	for i, keyword := range keywords {
		c.logger.InfoWithFields("crawling keyword", map[string]interface{}{
			"keyword":  keyword,
			"position": i + 1,
			"total":    len(keywords),
		})

		if err := c.crawlKeyword(ctx, cp, keyword); err != nil {
			if ctx.Err() != nil {
				return err
			}
			if errs.Is(err, errs.KindIdentityExhausted) {
				return err
			}
			c.reportFailure(cp, err, map[string]interface{}{
				"operation": "search",
				"keyword":   keyword,
			})
		}
	}
	return nil
}

func (c *Crawler) crawlKeyword(ctx context.Context, cp *checkpoint.Checkpoint, keyword string) error {
	ctx = douyin.WithKeyword(ctx, keyword)
	sort := douyin.ParseSearchSort(c.cfg.Crawl.SearchSort)
	publish := douyin.ParsePublishTime(c.cfg.Crawl.SearchPublishTime)

	// A configured start page skips the first StartPage pages; the
	// skipped entries still count against MaxItems. A checkpoint for
	// the keyword takes priority, but only for the keyword the run
	// stopped on; other keywords start from the configured page.
	page := c.cfg.Crawl.StartPage + 1
	if page < 1 {
		page = 1
	}
	searchID := ""
	if cp.CurrentKeyword == keyword {
		if cp.CurrentPage > 0 {
			page = cp.CurrentPage
		}
		searchID = cp.SearchID
	}
	seen := (page - 1) * searchPageSize

	for seen < c.cfg.Crawl.MaxItems {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.logger.DebugWithFields("fetching search page", map[string]interface{}{
			"keyword": keyword,
			"page":    page,
		})

		resp, err := c.client.SearchByKeyword(ctx, keyword, (page-1)*searchPageSize, sort, publish, searchID)
		if err != nil {
			return err
		}

		awemes := resp.Awemes
		if len(awemes) == 0 {
			c.logger.InfoWithFields("no more search results", map[string]interface{}{
				"keyword": keyword,
				"page":    page,
			})
			break
		}
		searchID = resp.SearchID

		for _, aweme := range awemes {
			aweme.SourceKeyword = keyword
		}
		seen += c.processItems(ctx, cp, awemes)
		page++

		c.cpMu.Lock()
		cp.CurrentKeyword = keyword
		cp.CurrentPage = page
		cp.SearchID = searchID
		c.cpMu.Unlock()
		c.flush(cp)

		if err := retry.Wait(ctx, c.cfg.Crawl.PageInterval); err != nil {
			return err
		}
	}
	return nil
}
