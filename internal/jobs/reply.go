package jobs

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"rotapost/internal/config"
	"rotapost/internal/cursor"
	"rotapost/internal/logging"
	"rotapost/internal/metrics"
	"rotapost/internal/model"
	"rotapost/internal/util"
)

// accountIndex maps account ids to accounts for reply-target lookups.
// Accounts without an id cannot be referenced by reply settings.
func accountIndex(cfg *model.Config) map[string]*model.Account {
	idx := make(map[string]*model.Account)
	for i := range cfg.Bots {
		acc := cfg.Bots[i].Account
		if acc == nil || acc.ID == nil {
			continue
		}
		idx[strconv.FormatInt(*acc.ID, 10)] = acc
	}
	return idx
}

// parseTargetIDs decodes target_bot_ids, a JSON array whose elements may be
// numbers or strings. Anything unreadable yields an empty list.
func parseTargetIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if v != "" {
				ids = append(ids, v)
			}
		case json.Number:
			ids = append(ids, v.String())
		}
	}
	return ids, nil
}

func settingName(s *model.ReplySetting, index int) string {
	if s.ID != nil {
		return "reply#" + strconv.FormatInt(*s.ID, 10)
	}
	return "reply#" + strconv.Itoa(index+1)
}

// RunReplyMonitor is one reply pass. Each active setting checks every target
// account for a tweet newer than its stored cursor and replies once per new
// tweet; the cursor advances only after the reply is confirmed, so a failed
// send is retried on the next pass.
func RunReplyMonitor(ctx context.Context, cfg *model.Config, rt config.Runtime, deps Deps) Report {
	deps.setDefaults(rt)
	start := time.Now()
	accounts := accountIndex(cfg)
	var rep Report

	for si := range cfg.ReplySettings {
		setting := &cfg.ReplySettings[si]
		name := settingName(setting, si)

		if !setting.Active() {
			skip(ctx, &deps, &rep, WorkerReply, "setting", name, "setting disabled", nil)
			continue
		}
		if setting.ReplyBotID == nil {
			skip(ctx, &deps, &rep, WorkerReply, "account", name, "no reply_bot_id configured", nil)
			continue
		}
		replyAcc := accounts[strconv.FormatInt(*setting.ReplyBotID, 10)]
		if replyAcc == nil || replyAcc.Status == model.StatusInactive {
			skip(ctx, &deps, &rep, WorkerReply, "account", name, "reply account missing or inactive", nil)
			continue
		}

		client, err := deps.Clients(*replyAcc)
		if err != nil {
			rep.Errors++
			metrics.Replies.WithLabelValues("failure").Inc()
			logging.Error("credentials_error", map[string]any{"setting": name, "bot": replyAcc.Name, "error": err.Error()})
			deps.record(ctx, WorkerReply, replyAcc.Name, "error", err.Error())
			continue
		}

		cm, err := cursor.Parse(setting.LastCheckedTweetIDs)
		if err != nil {
			rep.Errors++
			logging.Warn("cursor_reset", map[string]any{"setting": name, "error": err.Error()})
		}

		targets, err := parseTargetIDs(setting.TargetBotIDs)
		if err != nil {
			logging.Warn("bad_target_bot_ids", map[string]any{"setting": name, "error": err.Error()})
		}
		if len(targets) == 0 {
			skip(ctx, &deps, &rep, WorkerReply, "targets", name, "no target bots configured", nil)
			continue
		}

		updated := false
		for _, targetID := range targets {
			target := accounts[targetID]
			if target == nil || target.Name == "" {
				logging.Warn("unknown_target", map[string]any{"setting": name, "target": targetID})
				continue
			}
			since := cm.Get(targetID)

			latest, err := client.LatestTweet(ctx, target.Name, since)
			if err != nil {
				rep.Errors++
				logging.Error("timeline_fetch_failed", map[string]any{"setting": name, "target": target.Name, "error": err.Error()})
				deps.record(ctx, WorkerReply, target.Name, "error", err.Error())
				continue
			}
			if latest == "" || latest == since {
				continue
			}

			_, err = client.Reply(ctx, setting.ReplyContent, latest)
			if err != nil {
				rep.Errors++
				metrics.Replies.WithLabelValues("failure").Inc()
				logging.Error("reply_failed", map[string]any{"setting": name, "target": target.Name, "tweet": latest, "error": err.Error()})
				deps.record(ctx, WorkerReply, target.Name, "failure", err.Error())
			} else {
				rep.Success++
				metrics.Replies.WithLabelValues("success").Inc()
				cm.Set(targetID, latest)
				updated = true
				logging.Info("reply_success", map[string]any{
					"setting": name, "from": replyAcc.Name, "target": target.Name,
					"tweet": latest, "content": util.Preview(setting.ReplyContent, 80),
				})
				deps.record(ctx, WorkerReply, target.Name, "success", "tweet="+latest)
			}

			if !rt.DryRun {
				deps.SleepFn(rt.PostDelay())
			}
		}

		if updated {
			setting.LastCheckedTweetIDs = cm.Encode()
			rep.StateChanged = true
		}
	}

	metrics.ObserveRunDuration(WorkerReply, start)
	deps.recordRun(ctx, WorkerReply, rep)
	logging.Info("reply_result", map[string]any{"success": rep.Success, "errors": rep.Errors, "skips": rep.Skips})
	return rep
}
