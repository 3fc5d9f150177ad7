package crawler

import (
	"context"
	"errors"
	"sync"

	"dycrawler/pkg/checkpoint"
)

// runDetail fetches an explicit list of item ids. All ids fan out
// concurrently; the item gate bounds how many detail fetches are in
// flight at once.
func (c *Crawler) runDetail(ctx context.Context, cp *checkpoint.Checkpoint, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return errors.New("detail mode requires at least one item id")
	}

	c.logger.InfoWithFields("crawling item details", map[string]interface{}{
		"count": len(itemIDs),
	})

	var wg sync.WaitGroup
	for _, itemID := range itemIDs {
		if itemID == "" {
			continue
		}
		itemID := itemID
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.processDetailItem(ctx, cp, itemID)
		}()
	}
	wg.Wait()

	c.flush(cp)
	return ctx.Err()
}
