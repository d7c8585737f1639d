package config

import (
	"strconv"
	"time"

	"rotapost/internal/model"
)

// emptyCursorMap is the encoding of an empty reply cursor map.
const emptyCursorMap = "[]"

// Merge combines the user-authored config with the volatile system state into
// the canonical config. A nil state behaves like an empty one: cursors default
// to 0 and cursor maps to the empty encoding. Credential fields are never
// touched; they only ever flow through from the user config.
func Merge(user *model.Config, state *model.SystemState) *model.Config {
	out := &model.Config{
		Version:       user.Version,
		UpdatedAt:     user.UpdatedAt,
		Bots:          make([]model.Bot, len(user.Bots)),
		ReplySettings: make([]model.ReplySetting, len(user.ReplySettings)),
	}
	copy(out.Bots, user.Bots)
	copy(out.ReplySettings, user.ReplySettings)

	botState := map[string]model.BotState{}
	replyState := map[string]model.ReplyState{}
	if state != nil {
		if out.Version == "" {
			out.Version = state.Version
		}
		if out.UpdatedAt == "" {
			out.UpdatedAt = state.UpdatedAt
		}
		for _, entry := range state.BotState {
			if entry.AccountID != nil {
				botState["id:"+strconv.FormatInt(*entry.AccountID, 10)] = entry
			}
			if entry.AccountName != "" {
				botState["name:"+entry.AccountName] = entry
			}
		}
		for _, entry := range state.ReplyState {
			if entry.ID != nil {
				replyState["id:"+strconv.FormatInt(*entry.ID, 10)] = entry
			}
			if entry.ReplyBotID != nil {
				replyState["reply:"+strconv.FormatInt(*entry.ReplyBotID, 10)] = entry
			}
		}
	}
	if out.UpdatedAt == "" {
		out.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	for i := range out.Bots {
		entry, ok := botState[model.AccountKey(out.Bots[i].Account)]
		if ok && entry.CurrentIndex >= 0 {
			out.Bots[i].CurrentIndex = entry.CurrentIndex
		} else {
			out.Bots[i].CurrentIndex = 0
		}
	}
	for i := range out.ReplySettings {
		entry, ok := replyState[model.ReplyKey(&out.ReplySettings[i])]
		if ok && entry.LastCheckedTweetIDs != "" {
			out.ReplySettings[i].LastCheckedTweetIDs = entry.LastCheckedTweetIDs
		} else {
			out.ReplySettings[i].LastCheckedTweetIDs = emptyCursorMap
		}
	}
	return out
}

// Split divides a canonical config into the user-authored artifact (volatile
// fields stripped) and the system state artifact (only volatile fields, keyed
// by the same stable-key rule Merge uses).
func Split(c *model.Config, now time.Time) (model.Config, model.SystemState) {
	user := model.Config{
		Version:       c.Version,
		UpdatedAt:     c.UpdatedAt,
		Bots:          make([]model.Bot, len(c.Bots)),
		ReplySettings: make([]model.ReplySetting, len(c.ReplySettings)),
	}
	state := model.SystemState{
		Version:    c.Version,
		UpdatedAt:  c.UpdatedAt,
		BotState:   make([]model.BotState, 0, len(c.Bots)),
		ReplyState: make([]model.ReplyState, 0, len(c.ReplySettings)),
	}
	if state.UpdatedAt == "" {
		state.UpdatedAt = now.UTC().Format(time.RFC3339)
	}

	for i, bot := range c.Bots {
		row := model.BotState{CurrentIndex: bot.CurrentIndex}
		if bot.CurrentIndex < 0 {
			row.CurrentIndex = 0
		}
		if bot.Account != nil {
			row.AccountID = bot.Account.ID
			row.AccountName = bot.Account.Name
		}
		state.BotState = append(state.BotState, row)

		bot.CurrentIndex = 0
		user.Bots[i] = bot
	}
	for i, setting := range c.ReplySettings {
		encoded := setting.LastCheckedTweetIDs
		if encoded == "" {
			encoded = emptyCursorMap
		}
		state.ReplyState = append(state.ReplyState, model.ReplyState{
			ID:                  setting.ID,
			ReplyBotID:          setting.ReplyBotID,
			LastCheckedTweetIDs: encoded,
		})

		setting.LastCheckedTweetIDs = ""
		user.ReplySettings[i] = setting
	}
	return user, state
}
