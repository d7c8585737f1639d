package xclient

import (
	"context"
	"strconv"

	"rotapost/internal/logging"
)

// DryRunClient satisfies Client without touching the network. Ids are
// generated from a run-local counter so a dry run is fully deterministic.
type DryRunClient struct {
	seq int64
}

// NewDryRun returns a fresh dry-run client.
func NewDryRun() *DryRunClient { return &DryRunClient{} }

func (c *DryRunClient) next(prefix string) string {
	c.seq++
	return prefix + strconv.FormatInt(c.seq, 10)
}

func (c *DryRunClient) Post(ctx context.Context, text string) (Tweet, error) {
	logging.Info("dry_run_post", map[string]any{"text": text})
	return Tweet{ID: c.next("dry_run_"), Text: text}, nil
}

func (c *DryRunClient) Reply(ctx context.Context, text, inReplyToID string) (Tweet, error) {
	logging.Info("dry_run_reply", map[string]any{"text": text, "in_reply_to": inReplyToID})
	return Tweet{ID: c.next("dry_run_"), Text: text}, nil
}

// LatestTweet simulates one unseen tweet per target that has no cursor yet,
// and nothing new for targets that already have one. This exercises the
// cursor-advance path exactly once per fresh target.
func (c *DryRunClient) LatestTweet(ctx context.Context, handle, sinceID string) (string, error) {
	if sinceID != "" {
		return "", nil
	}
	return c.next("dry_run_tweet_"), nil
}
