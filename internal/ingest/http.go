package ingest

import (
	"context"
	"errors"

	"github.com/AngelCh415/strategy-engine/internal/utils"
)

// GetJSONWithRetry retries transport errors and 429/5xx responses with
// exponential backoff. Other statuses and context cancellation stop at once.
func GetJSONWithRetry(ctx context.Context, c HTTPClient, url string, dst any, b utils.Backoff) error {
	return b.Do(ctx, func(int) error {
		err := getJSON(ctx, c, url, dst)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return utils.Permanent(err)
		}
		if ctx.Err() != nil {
			return utils.Permanent(err)
		}
		return err
	})
}
