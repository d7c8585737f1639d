package jobs

import (
	"context"
	"errors"
	"testing"

	"rotapost/internal/config"
	"rotapost/internal/model"
	"rotapost/internal/xclient"
)

func replyFixture(t *testing.T, lastChecked string) *model.Config {
	t.Helper()
	mk := func(id int64, name string) model.Bot {
		return activeBot(id, name, "", nil, 0)
	}
	rid, active := int64(10), true
	replyBot := int64(1)
	return &model.Config{
		Bots: []model.Bot{mk(1, "replier"), mk(2, "target_a"), mk(3, "target_b")},
		ReplySettings: []model.ReplySetting{{
			ID:                  &rid,
			ReplyBotID:          &replyBot,
			TargetBotIDs:        `[2, "3"]`,
			ReplyContent:        "nice post",
			IsActive:            &active,
			LastCheckedTweetIDs: lastChecked,
		}},
	}
}

func TestRunReplyMonitorAdvancesOnlySeenTargets(t *testing.T) {
	cfg := replyFixture(t, `["2:123","3:200"]`)
	fc := &fakeClient{latest: map[string]string{"target_a": "124", "target_b": "200"}}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Success != 1 || rep.Errors != 0 {
		t.Fatalf("report %+v", rep)
	}
	if !rep.StateChanged {
		t.Fatal("expected state change")
	}
	if len(fc.replies) != 1 || fc.replies[0] != [2]string{"nice post", "124"} {
		t.Fatalf("replies %v", fc.replies)
	}
	got := cfg.ReplySettings[0].LastCheckedTweetIDs
	if got != `["2:124","3:200"]` {
		t.Fatalf("cursors %s", got)
	}
}

func TestRunReplyMonitorFailedSendKeepsCursor(t *testing.T) {
	cfg := replyFixture(t, `["2:123"]`)
	fc := &fakeClient{
		latest:   map[string]string{"target_a": "124"},
		replyErr: errors.New("boom"),
	}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Errors != 1 || rep.Success != 0 {
		t.Fatalf("report %+v", rep)
	}
	if rep.StateChanged || cfg.ReplySettings[0].LastCheckedTweetIDs != `["2:123"]` {
		t.Fatalf("cursor must survive a failed reply: %s", cfg.ReplySettings[0].LastCheckedTweetIDs)
	}
}

func TestRunReplyMonitorFirstContactRepliesToLatest(t *testing.T) {
	cfg := replyFixture(t, "")
	fc := &fakeClient{latest: map[string]string{"target_a": "500"}}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Success != 1 {
		t.Fatalf("report %+v", rep)
	}
	if cfg.ReplySettings[0].LastCheckedTweetIDs != `["2:500"]` {
		t.Fatalf("cursors %s", cfg.ReplySettings[0].LastCheckedTweetIDs)
	}
}

func TestRunReplyMonitorMalformedCursorWarnsAndContinues(t *testing.T) {
	cfg := replyFixture(t, `{not json`)
	fc := &fakeClient{latest: map[string]string{"target_a": "9"}}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(fc))

	if rep.Errors != 1 {
		t.Fatalf("malformed cursor should be counted: %+v", rep)
	}
	if rep.Success != 1 || cfg.ReplySettings[0].LastCheckedTweetIDs != `["2:9"]` {
		t.Fatalf("monitoring should proceed from scratch: %+v %s", rep, cfg.ReplySettings[0].LastCheckedTweetIDs)
	}
}

func TestRunReplyMonitorSkipsDisabledAndInactive(t *testing.T) {
	cfg := replyFixture(t, "[]")
	off := false
	cfg.ReplySettings[0].IsActive = &off

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(&fakeClient{}))
	if rep.Skips != 1 || rep.Success != 0 {
		t.Fatalf("disabled setting: %+v", rep)
	}

	cfg = replyFixture(t, "[]")
	cfg.Bots[0].Account.Status = model.StatusInactive
	rep = RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(&fakeClient{}))
	if rep.Skips != 1 || rep.Success != 0 {
		t.Fatalf("inactive reply account: %+v", rep)
	}
}

func TestRunReplyMonitorUnknownTargetIgnored(t *testing.T) {
	cfg := replyFixture(t, "[]")
	cfg.ReplySettings[0].TargetBotIDs = `[99]`

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(&fakeClient{}))
	if rep.Success != 0 || rep.Errors != 0 || rep.StateChanged {
		t.Fatalf("report %+v", rep)
	}
}

func TestRunReplyMonitorErrorStatusOwnerStillRuns(t *testing.T) {
	cfg := replyFixture(t, "[]")
	cfg.Bots[0].Account.Status = model.StatusError
	fc := &fakeClient{latest: map[string]string{"target_a": "7"}}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, testDeps(fc))
	if rep.Success != 1 {
		t.Fatalf("error-status owner should still reply: %+v", rep)
	}
}

func TestRunReplyMonitorCredentialErrorCounts(t *testing.T) {
	cfg := replyFixture(t, "[]")
	deps := testDeps(&fakeClient{})
	deps.Clients = func(model.Account) (xclient.Client, error) {
		return nil, xclient.ErrMissingCredentials
	}

	rep := RunReplyMonitor(context.Background(), cfg, config.Runtime{}, deps)
	if rep.Errors != 1 || rep.Success != 0 {
		t.Fatalf("report %+v", rep)
	}
}
