package jobs

import (
	"context"
	"strconv"
	"time"

	"rotapost/internal/clock"
	"rotapost/internal/config"
	"rotapost/internal/content"
	"rotapost/internal/logging"
	"rotapost/internal/metrics"
	"rotapost/internal/model"
	"rotapost/internal/runlog"
	"rotapost/internal/schedule"
	"rotapost/internal/util"
	"rotapost/internal/xclient"
)

// Worker names, used in logs, metrics, and the run log.
const (
	WorkerPost  = "post"
	WorkerReply = "reply"
)

// ClientFactory builds a posting client for one account.
type ClientFactory func(model.Account) (xclient.Client, error)

// NewFactory returns the factory matching the runtime mode. Dry-run still
// validates credentials (a misconfigured bot should surface either way) but
// all accounts share one deterministic dry-run client.
func NewFactory(rt config.Runtime) ClientFactory {
	if rt.DryRun {
		dry := xclient.NewDryRun()
		return func(acc model.Account) (xclient.Client, error) {
			if _, err := xclient.New(acc); err != nil {
				return nil, err
			}
			return dry, nil
		}
	}
	return func(acc model.Account) (xclient.Client, error) {
		return xclient.New(acc)
	}
}

// Deps carries collaborators a worker pass needs. Zero-value fields get
// production defaults; tests inject fakes.
type Deps struct {
	Clients ClientFactory
	RunLog  *runlog.DB
	NowFn   func() clock.Parts
	SleepFn func(time.Duration)
}

func (d *Deps) setDefaults(rt config.Runtime) {
	if d.Clients == nil {
		d.Clients = NewFactory(rt)
	}
	if d.NowFn == nil {
		d.NowFn = clock.Now
	}
	if d.SleepFn == nil {
		d.SleepFn = time.Sleep
	}
}

// Report aggregates one worker pass. StateChanged tells the caller whether
// the system state artifact needs its single end-of-run rewrite.
type Report struct {
	Success      int
	Errors       int
	Skips        int
	StateChanged bool
}

func (d *Deps) record(ctx context.Context, worker, bot, outcome, detail string) {
	if d.RunLog == nil {
		return
	}
	err := d.RunLog.RecordOutcome(ctx, runlog.Outcome{
		TS: time.Now().UTC(), Worker: worker, Bot: bot, Outcome: outcome, Detail: detail,
	})
	if err != nil {
		logging.Warn("runlog_write_failed", map[string]any{"error": err.Error()})
	}
}

func (d *Deps) recordRun(ctx context.Context, worker string, rep Report) {
	if d.RunLog == nil {
		return
	}
	if err := d.RunLog.RecordRun(ctx, time.Now().UTC(), worker, rep.Success, rep.Errors, rep.Skips); err != nil {
		logging.Warn("runlog_write_failed", map[string]any{"error": err.Error()})
	}
}

func botName(bot *model.Bot, index int) string {
	if bot.Account != nil && bot.Account.Name != "" {
		return bot.Account.Name
	}
	return "bot#" + strconv.Itoa(index+1)
}

func skip(ctx context.Context, deps *Deps, rep *Report, worker, stage, bot, reason string, fields map[string]any) {
	rep.Skips++
	metrics.Skips.WithLabelValues(stage).Inc()
	if fields == nil {
		fields = map[string]any{}
	}
	fields["bot"] = bot
	fields["stage"] = stage
	fields["reason"] = reason
	logging.Info("skip", fields)
	deps.record(ctx, worker, bot, "skip", stage+": "+reason)
}

// RunScheduledPosts is one posting pass: bots are visited strictly in config
// order, each decided independently, cursors advanced in memory only after a
// confirmed post. The caller persists state once afterwards if anything
// changed.
func RunScheduledPosts(ctx context.Context, cfg *model.Config, rt config.Runtime, deps Deps) Report {
	deps.setDefaults(rt)
	start := time.Now()
	now := deps.NowFn()
	var rep Report

	for i := range cfg.Bots {
		bot := &cfg.Bots[i]
		name := botName(bot, i)

		if bot.Account == nil || bot.Account.Status != model.StatusActive {
			skip(ctx, &deps, &rep, WorkerPost, "account", name, "inactive or missing account configuration", nil)
			continue
		}

		ev := schedule.Evaluate(bot.ScheduledTimes, now)
		if !ev.ShouldPost {
			if ev.Reason == schedule.ReasonNoSchedule {
				skip(ctx, &deps, &rep, WorkerPost, "schedule", name, string(ev.Reason), map[string]any{"now": now.ISO})
			} else {
				next := "n/a"
				if ev.Next != nil {
					next = ev.Next.Label
				}
				skip(ctx, &deps, &rep, WorkerPost, "schedule", name, string(ev.Reason), map[string]any{
					"now":        now.ISO,
					"configured": schedule.SummarizeWindows(ev.Windows),
					"next":       next,
				})
			}
			continue
		}

		res := content.ResolveNext(*bot)
		if !res.OK {
			skip(ctx, &deps, &rep, WorkerPost, "content", name, res.Reason, nil)
			continue
		}

		client, err := deps.Clients(*bot.Account)
		if err != nil {
			rep.Errors++
			metrics.Posts.WithLabelValues("failure").Inc()
			logging.Error("credentials_error", map[string]any{"bot": name, "error": err.Error()})
			deps.record(ctx, WorkerPost, name, "error", err.Error())
			continue
		}

		window := ev.Matched.Label
		pending := map[string]any{"bot": name, "window": window, "source": string(res.Source)}
		if res.Source == content.SourceList {
			pending["index"] = res.Index
			pending["length"] = res.Length
		}
		logging.Info("post_pending", pending)

		tweet, err := client.Post(ctx, res.Content)
		if err != nil {
			rep.Errors++
			metrics.Posts.WithLabelValues("failure").Inc()
			logging.Error("post_failed", map[string]any{"bot": name, "error": err.Error()})
			deps.record(ctx, WorkerPost, name, "failure", err.Error())
		} else {
			rep.Success++
			metrics.Posts.WithLabelValues("success").Inc()
			if res.Source == content.SourceList {
				bot.CurrentIndex = res.NextIndex
				rep.StateChanged = true
			}
			logging.Info("post_success", map[string]any{
				"bot": name, "tweet": tweet.ID, "window": window,
				"content": util.Preview(res.Content, 80),
			})
			deps.record(ctx, WorkerPost, name, "success", "tweet="+tweet.ID)
		}

		if !rt.DryRun {
			deps.SleepFn(rt.PostDelay())
		}
	}

	metrics.ObserveRunDuration(WorkerPost, start)
	deps.recordRun(ctx, WorkerPost, rep)
	logging.Info("post_result", map[string]any{"success": rep.Success, "errors": rep.Errors, "skips": rep.Skips})
	return rep
}
