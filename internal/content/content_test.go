package content

import (
	"encoding/json"
	"testing"

	"rotapost/internal/model"
)

func listBot(raw string, index int) model.Bot {
	return model.Bot{ScheduledContentList: json.RawMessage(raw), CurrentIndex: index}
}

func TestResolveNextRotatesList(t *testing.T) {
	bot := listBot(`["a","b","c"]`, 2)
	r := ResolveNext(bot)
	if !r.OK || r.Content != "c" {
		t.Fatalf("unexpected resolution %+v", r)
	}
	if r.NextIndex != 0 || r.Index != 2 || r.Length != 3 {
		t.Fatalf("cursor math wrong: %+v", r)
	}
	if r.Source != SourceList {
		t.Fatalf("source %q", r.Source)
	}
}

func TestResolveNextFullRotationReturnsToStart(t *testing.T) {
	bot := listBot(`["a","b","c"]`, 0)
	for i := 0; i < 3; i++ {
		r := ResolveNext(bot)
		if !r.OK {
			t.Fatalf("step %d: %+v", i, r)
		}
		bot.CurrentIndex = r.NextIndex
	}
	if bot.CurrentIndex != 0 {
		t.Fatalf("cursor should return to 0 after N posts, got %d", bot.CurrentIndex)
	}
}

func TestResolveNextNormalizesOutOfRangeCursor(t *testing.T) {
	r := ResolveNext(listBot(`["a","b"]`, 7))
	if !r.OK || r.Content != "b" || r.NextIndex != 0 {
		t.Fatalf("modulo normalization failed: %+v", r)
	}
	r = ResolveNext(listBot(`["a","b"]`, -3))
	if !r.OK || r.Content != "a" {
		t.Fatalf("negative cursor should reset to 0: %+v", r)
	}
}

func TestResolveNextJSONEncodedStringList(t *testing.T) {
	// The desktop app stores the list as a JSON string containing an array.
	bot := listBot(`"[\"x\",\"y\"]"`, 1)
	r := ResolveNext(bot)
	if !r.OK || r.Content != "y" || r.NextIndex != 0 {
		t.Fatalf("unexpected resolution %+v", r)
	}
}

func TestResolveNextSkipsMalformedList(t *testing.T) {
	r := ResolveNext(listBot(`{"not":"an array"}`, 0))
	if r.OK || r.Reason == "" {
		t.Fatalf("expected skip with reason, got %+v", r)
	}
}

func TestResolveNextSkipsEmptyList(t *testing.T) {
	r := ResolveNext(listBot(`[]`, 0))
	if r.OK || r.Reason != "scheduled_content_list is empty" {
		t.Fatalf("unexpected %+v", r)
	}
}

func TestResolveNextSkipsEmptyItem(t *testing.T) {
	r := ResolveNext(listBot(`["a","   "]`, 1))
	if r.OK {
		t.Fatalf("expected skip, got %+v", r)
	}
	if r.Reason != "scheduled_content_list[1] is empty after trimming" {
		t.Fatalf("reason %q", r.Reason)
	}
}

func TestResolveNextSingleContent(t *testing.T) {
	r := ResolveNext(model.Bot{ScheduledContent: "  hello  "})
	if !r.OK || r.Content != "hello" || r.Source != SourceSingle {
		t.Fatalf("unexpected %+v", r)
	}
	if r.NextIndex != 0 || r.Length != 0 {
		t.Fatalf("single content must not advance a cursor: %+v", r)
	}
}

func TestResolveNextListTakesPrecedenceOverSingle(t *testing.T) {
	bot := listBot(`["list item"]`, 0)
	bot.ScheduledContent = "single item"
	r := ResolveNext(bot)
	if !r.OK || r.Content != "list item" {
		t.Fatalf("list should win: %+v", r)
	}
}

func TestResolveNextNoContent(t *testing.T) {
	r := ResolveNext(model.Bot{})
	if r.OK || r.Reason != "no scheduled content configured" {
		t.Fatalf("unexpected %+v", r)
	}
	r = ResolveNext(model.Bot{ScheduledContentList: json.RawMessage(`null`)})
	if r.OK || r.Reason != "no scheduled content configured" {
		t.Fatalf("null list should fall through: %+v", r)
	}
}

func TestNormalizePayloadCoercesNonStringItems(t *testing.T) {
	p, err := NormalizePayload(listBot(`["a", 42, null, true]`, 0))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "42", "", "true"}
	if len(p.Items) != len(want) {
		t.Fatalf("items %v", p.Items)
	}
	for i := range want {
		if p.Items[i] != want[i] {
			t.Fatalf("item %d: got %q want %q", i, p.Items[i], want[i])
		}
	}
}
