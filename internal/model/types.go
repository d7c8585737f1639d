package model

import (
	"encoding/json"
	"strconv"
)

// Account status values as stored in the user config artifact.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusError    = "error"
)

// Account is one X account owned by a bot. The four credential fields are
// opaque to this program and are never copied into the system state artifact.
type Account struct {
	ID                *int64 `json:"id,omitempty"`
	Name              string `json:"account_name"`
	Status            string `json:"status,omitempty"`
	APIKey            string `json:"api_key,omitempty"`
	APIKeySecret      string `json:"api_key_secret,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	AccessTokenSecret string `json:"access_token_secret,omitempty"`
}

// Bot wraps one account plus its posting schedule and content source.
// CurrentIndex is volatile state: it lives in the system state artifact and
// is stripped from the user config on split.
type Bot struct {
	Account              *Account        `json:"account"`
	ScheduledContent     string          `json:"scheduled_content,omitempty"`
	ScheduledContentList json.RawMessage `json:"scheduled_content_list,omitempty"`
	ScheduledTimes       string          `json:"scheduled_times,omitempty"`
	CurrentIndex         int             `json:"current_index,omitempty"`
}

// ReplySetting configures one reply bot monitoring a set of target bots.
// TargetBotIDs is a JSON-encoded id list as authored by the desktop app.
// LastCheckedTweetIDs is volatile state (encoded cursor map).
type ReplySetting struct {
	ID                  *int64 `json:"id,omitempty"`
	ReplyBotID          *int64 `json:"reply_bot_id,omitempty"`
	TargetBotIDs        string `json:"target_bot_ids,omitempty"`
	ReplyContent        string `json:"reply_content,omitempty"`
	IsActive            *bool  `json:"is_active,omitempty"`
	LastCheckedTweetIDs string `json:"last_checked_tweet_ids,omitempty"`
}

// Active reports whether the setting should be processed. Absent means active.
func (r *ReplySetting) Active() bool {
	return r.IsActive == nil || *r.IsActive
}

// Config is the canonical merged configuration: the user-authored shape with
// the volatile fields filled in from system state.
type Config struct {
	Version       string         `json:"version,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
	Bots          []Bot          `json:"bots"`
	ReplySettings []ReplySetting `json:"reply_settings,omitempty"`
}

// BotState is the volatile projection of one bot.
type BotState struct {
	AccountID    *int64 `json:"account_id"`
	AccountName  string `json:"account_name,omitempty"`
	CurrentIndex int    `json:"current_index"`
}

// ReplyState is the volatile projection of one reply setting.
type ReplyState struct {
	ID                  *int64 `json:"id"`
	ReplyBotID          *int64 `json:"reply_bot_id"`
	LastCheckedTweetIDs string `json:"last_checked_tweet_ids"`
}

// SystemState is the machine-updated artifact rewritten at the end of a run.
// It carries no credentials.
type SystemState struct {
	Version    string       `json:"version,omitempty"`
	UpdatedAt  string       `json:"updated_at,omitempty"`
	BotState   []BotState   `json:"bot_state"`
	ReplyState []ReplyState `json:"reply_state"`
}

// AccountKey returns the stable key used to correlate a bot with its state
// entry: the numeric id when present, the account name otherwise.
func AccountKey(a *Account) string {
	if a == nil {
		return ""
	}
	if a.ID != nil {
		return "id:" + strconv.FormatInt(*a.ID, 10)
	}
	if a.Name != "" {
		return "name:" + a.Name
	}
	return ""
}

// ReplyKey returns the stable key for a reply setting: the setting id when
// present, the reply bot id otherwise.
func ReplyKey(r *ReplySetting) string {
	if r == nil {
		return ""
	}
	if r.ID != nil {
		return "id:" + strconv.FormatInt(*r.ID, 10)
	}
	if r.ReplyBotID != nil {
		return "reply:" + strconv.FormatInt(*r.ReplyBotID, 10)
	}
	return ""
}
