package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"rotapost/internal/model"
)

// Source discriminates where resolved content came from.
type Source string

const (
	SourceNone   Source = ""
	SourceSingle Source = "single"
	SourceList   Source = "list"
)

// Payload is the bot's content source normalized into one tagged shape.
// The artifact allows scheduled_content_list to arrive either as a native
// JSON array or as a JSON-encoded string holding an array; callers should
// never have to branch on that again.
type Payload struct {
	Source Source
	Items  []string
	Text   string
}

// NormalizePayload classifies a bot's content fields. A present but
// unparseable list is an error; the caller turns it into a skip.
func NormalizePayload(bot model.Bot) (Payload, error) {
	if len(bot.ScheduledContentList) > 0 && !bytes.Equal(bytes.TrimSpace(bot.ScheduledContentList), []byte("null")) {
		items, err := decodeList(bot.ScheduledContentList)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Source: SourceList, Items: items}, nil
	}
	if single := strings.TrimSpace(bot.ScheduledContent); single != "" {
		return Payload{Source: SourceSingle, Text: single}, nil
	}
	return Payload{Source: SourceNone}, nil
}

func decodeList(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		// Doubly encoded: a JSON string whose contents are the array.
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("failed to parse scheduled_content_list: %w", err)
		}
		trimmed = []byte(inner)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse scheduled_content_list: %w", err)
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = stringify(item)
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Resolution is the outcome of picking the next content item for a bot.
// A non-OK resolution is a skip, not an error.
type Resolution struct {
	OK        bool
	Reason    string
	Content   string
	Source    Source
	Index     int
	Length    int
	NextIndex int
}

// ResolveNext picks the content a bot should post now. For list content the
// stored cursor is normalized into range via modulo and the returned
// NextIndex is the post-success advance; single content never advances.
func ResolveNext(bot model.Bot) Resolution {
	payload, err := NormalizePayload(bot)
	if err != nil {
		return Resolution{Reason: err.Error()}
	}

	switch payload.Source {
	case SourceList:
		if len(payload.Items) == 0 {
			return Resolution{Reason: "scheduled_content_list is empty"}
		}
		index := bot.CurrentIndex
		if index < 0 {
			index = 0
		}
		index %= len(payload.Items)
		text := strings.TrimSpace(payload.Items[index])
		if text == "" {
			return Resolution{Reason: fmt.Sprintf("scheduled_content_list[%d] is empty after trimming", index)}
		}
		return Resolution{
			OK:        true,
			Content:   text,
			Source:    SourceList,
			Index:     index,
			Length:    len(payload.Items),
			NextIndex: (index + 1) % len(payload.Items),
		}
	case SourceSingle:
		return Resolution{OK: true, Content: payload.Text, Source: SourceSingle}
	default:
		return Resolution{Reason: "no scheduled content configured"}
	}
}
