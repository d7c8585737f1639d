package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"rotapost/internal/clock"
	"rotapost/internal/config"
	"rotapost/internal/model"
	"rotapost/internal/xclient"
)

type fakeClient struct {
	posts    []string
	replies  [][2]string // text, in_reply_to
	latest   map[string]string
	postErr  error
	replyErr error
	seq      int
}

func (f *fakeClient) Post(ctx context.Context, text string) (xclient.Tweet, error) {
	if f.postErr != nil {
		return xclient.Tweet{}, f.postErr
	}
	f.posts = append(f.posts, text)
	f.seq++
	return xclient.Tweet{ID: "t" + strconv.Itoa(f.seq), Text: text}, nil
}

func (f *fakeClient) Reply(ctx context.Context, text, inReplyToID string) (xclient.Tweet, error) {
	if f.replyErr != nil {
		return xclient.Tweet{}, f.replyErr
	}
	f.replies = append(f.replies, [2]string{text, inReplyToID})
	f.seq++
	return xclient.Tweet{ID: "r" + strconv.Itoa(f.seq), Text: text}, nil
}

func (f *fakeClient) LatestTweet(ctx context.Context, handle, sinceID string) (string, error) {
	id := f.latest[handle]
	if id == "" || id == sinceID {
		return "", nil
	}
	return id, nil
}

func testDeps(c *fakeClient) Deps {
	return Deps{
		Clients: func(model.Account) (xclient.Client, error) { return c, nil },
		NowFn: func() clock.Parts {
			return clock.Parts{Hour: 9, Minute: 15, ISO: "2026-03-01T09:15:00+09:00"}
		},
		SleepFn: func(time.Duration) {},
	}
}

func activeBot(id int64, name, times string, list []string, idx int) model.Bot {
	b := model.Bot{
		Account: &model.Account{
			ID: &id, Name: name, Status: model.StatusActive,
			APIKey: "k", APIKeySecret: "ks", AccessToken: "t", AccessTokenSecret: "ts",
		},
		ScheduledTimes: times,
		CurrentIndex:   idx,
	}
	if list != nil {
		raw, _ := json.Marshal(list)
		b.ScheduledContentList = raw
	}
	return b
}

func TestRunScheduledPostsAdvancesCursorOnSuccess(t *testing.T) {
	bot := activeBot(1, "alpha", "09", []string{"one", "two", "three"}, 2)
	cfg := &model.Config{Bots: []model.Bot{bot}}
	fc := &fakeClient{}

	rep := RunScheduledPosts(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Success != 1 || rep.Errors != 0 || rep.Skips != 0 {
		t.Fatalf("report %+v", rep)
	}
	if !rep.StateChanged {
		t.Fatal("expected state change after list post")
	}
	if len(fc.posts) != 1 || fc.posts[0] != "three" {
		t.Fatalf("posts %v", fc.posts)
	}
	if cfg.Bots[0].CurrentIndex != 0 {
		t.Fatalf("cursor not wrapped: %d", cfg.Bots[0].CurrentIndex)
	}
}

func TestRunScheduledPostsSingleContentDoesNotTouchState(t *testing.T) {
	bot := activeBot(1, "alpha", "09", nil, 0)
	bot.ScheduledContent = "hello"
	cfg := &model.Config{Bots: []model.Bot{bot}}
	fc := &fakeClient{}

	rep := RunScheduledPosts(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Success != 1 || rep.StateChanged {
		t.Fatalf("report %+v", rep)
	}
	if fc.posts[0] != "hello" {
		t.Fatalf("posts %v", fc.posts)
	}
}

func TestRunScheduledPostsSkipsOutsideWindowAndInactive(t *testing.T) {
	outside := activeBot(1, "alpha", "15:30", []string{"x"}, 0)
	inactive := activeBot(2, "beta", "09", []string{"y"}, 0)
	inactive.Account.Status = model.StatusInactive
	noSchedule := activeBot(3, "gamma", "", []string{"z"}, 0)
	cfg := &model.Config{Bots: []model.Bot{outside, inactive, noSchedule}}
	fc := &fakeClient{}

	rep := RunScheduledPosts(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Success != 0 || rep.Errors != 0 || rep.Skips != 3 {
		t.Fatalf("report %+v", rep)
	}
	if rep.StateChanged {
		t.Fatal("skips must not change state")
	}
	if len(fc.posts) != 0 {
		t.Fatalf("unexpected posts %v", fc.posts)
	}
}

func TestRunScheduledPostsFailureKeepsCursor(t *testing.T) {
	bot := activeBot(1, "alpha", "09", []string{"one", "two"}, 1)
	cfg := &model.Config{Bots: []model.Bot{bot}}
	fc := &fakeClient{postErr: errors.New("boom")}

	rep := RunScheduledPosts(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Errors != 1 || rep.Success != 0 {
		t.Fatalf("report %+v", rep)
	}
	if rep.StateChanged || cfg.Bots[0].CurrentIndex != 1 {
		t.Fatalf("cursor must survive a failed post: %+v", cfg.Bots[0])
	}
}

func TestRunScheduledPostsClientErrorCounts(t *testing.T) {
	bot := activeBot(1, "alpha", "09", []string{"one"}, 0)
	cfg := &model.Config{Bots: []model.Bot{bot}}
	deps := testDeps(&fakeClient{})
	deps.Clients = func(model.Account) (xclient.Client, error) {
		return nil, xclient.ErrMissingCredentials
	}

	rep := RunScheduledPosts(context.Background(), cfg, config.Runtime{}, deps)

	if rep.Errors != 1 || rep.Success != 0 || rep.Skips != 0 {
		t.Fatalf("report %+v", rep)
	}
}

func TestDryRunFactoryStillChecksCredentials(t *testing.T) {
	f := NewFactory(config.Runtime{DryRun: true})

	if _, err := f(model.Account{Name: "bare"}); !errors.Is(err, xclient.ErrMissingCredentials) {
		t.Fatalf("expected credential error, got %v", err)
	}
	c, err := f(model.Account{
		Name: "ok", APIKey: "k", APIKeySecret: "ks", AccessToken: "t", AccessTokenSecret: "ts",
	})
	if err != nil {
		t.Fatal(err)
	}
	tw, err := c.Post(context.Background(), "hi")
	if err != nil || tw.ID != "dry_run_1" {
		t.Fatalf("dry-run post: %+v %v", tw, err)
	}
}
