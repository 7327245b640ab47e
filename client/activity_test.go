package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/ffx64/discord-presence-go/internal/codec"
)

func TestValidateTrimsAndChecksBudgets(t *testing.T) {
	a := &Activity{State: "  playing  ", Details: "  ranked  "}
	if _, err := a.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.State != "playing" || a.Details != "ranked" {
		t.Errorf("fields not trimmed: %q %q", a.State, a.Details)
	}

	long := strings.Repeat("x", maxTextLen+1)
	for name, act := range map[string]*Activity{
		"state":       {State: long},
		"details":     {Details: long},
		"party id":    {Party: &Party{ID: long, Size: 1, Max: 2}},
		"secret":      {Secrets: &Secrets{Join: long}},
		"asset text":  {Assets: &Assets{LargeImage: "k", LargeText: long}},
		"asset key":   {Assets: &Assets{LargeImage: strings.Repeat("k", maxAssetKeyLen+1)}},
		"small asset": {Assets: &Assets{SmallImage: strings.Repeat("k", maxAssetKeyLen+1)}},
	} {
		if _, err := act.validate(); !errors.Is(err, ErrStringOutOfRange) {
			t.Errorf("%s: expected ErrStringOutOfRange, got %v", name, err)
		}
	}

	// A string of exactly the budget passes.
	exact := &Activity{State: strings.Repeat("x", maxTextLen)}
	if _, err := exact.validate(); err != nil {
		t.Errorf("exact budget rejected: %v", err)
	}
}

func TestValidateWarnsOnSecretsWithoutParty(t *testing.T) {
	a := &Activity{Secrets: &Secrets{Join: "j"}}
	warnings, err := a.validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(warnings) == 0 {
		t.Errorf("expected a warning for secrets without a party")
	}
}

func TestValidateButtonsBeatSecrets(t *testing.T) {
	a := &Activity{
		Party:   &Party{ID: "p", Size: 1, Max: 2},
		Secrets: &Secrets{Join: "j"},
		Buttons: []Button{{Label: "Site", Url: "https://example.com"}},
	}
	if _, err := a.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if a.Secrets != nil {
		t.Errorf("secrets should be dropped when buttons are present")
	}
}

func TestValidButtons(t *testing.T) {
	in := []Button{
		{Label: "", Url: "https://a"},
		{Label: "x", Url: "ftp://nope"},
		{Label: " ok ", Url: " https://one "},
		{Label: "two", Url: "http://two"},
		{Label: "three", Url: "https://three"},
	}
	out := validButtons(in)
	if len(out) != 2 {
		t.Fatalf("kept %d buttons, want 2", len(out))
	}
	if out[0].Label != "ok" || out[0].Url != "https://one" {
		t.Errorf("first button not trimmed: %+v", out[0])
	}
	if out[1].Label != "two" {
		t.Errorf("button order not preserved: %+v", out[1])
	}
}

func TestPartySerializationCoerces(t *testing.T) {
	b, err := codec.Marshal(Party{ID: "p", Size: 3, Max: 2})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `"size":[3,3]`; !strings.Contains(string(b), want) {
		t.Errorf("party json %s does not contain %s", b, want)
	}

	b, err = codec.Marshal(Party{ID: "p", Size: 0, Max: 0})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `"size":[1,1]`; !strings.Contains(string(b), want) {
		t.Errorf("party json %s does not contain %s", b, want)
	}
}

func TestPartyUnmarshal(t *testing.T) {
	var p Party
	if err := codec.Unmarshal([]byte(`{"id":"abc","size":[2,8]}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID != "abc" || p.Size != 2 || p.Max != 8 {
		t.Errorf("party: %+v", p)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &Activity{
		State:      "s",
		Details:    "d",
		Timestamps: &Timestamps{Start: 1, End: 2},
		Assets:     &Assets{LargeImage: "li", SmallImage: "si"},
		Party:      &Party{ID: "p", Size: 1, Max: 4},
		Secrets:    &Secrets{Join: "j"},
		Buttons:    []Button{{Label: "l", Url: "https://u"}},
	}
	clone := orig.Clone()

	orig.State = "changed"
	orig.Timestamps.Start = 99
	orig.Assets.LargeImage = "changed"
	orig.Party.Size = 9
	orig.Secrets.Join = "changed"
	orig.Buttons[0].Label = "changed"

	if clone.State != "s" || clone.Timestamps.Start != 1 || clone.Assets.LargeImage != "li" ||
		clone.Party.Size != 1 || clone.Secrets.Join != "j" || clone.Buttons[0].Label != "l" {
		t.Errorf("clone shares state with original: %+v", clone)
	}

	var nilAct *Activity
	if nilAct.Clone() != nil {
		t.Errorf("nil clone should be nil")
	}
}

func TestMergeReplacesScalarsAndStructs(t *testing.T) {
	base := &Activity{
		State:      "old",
		Timestamps: &Timestamps{Start: 1},
		Party:      &Party{ID: "old", Size: 1, Max: 2},
	}
	base.Merge(&Activity{
		State:      "new",
		Details:    "fresh",
		Timestamps: &Timestamps{End: 7},
		Party:      &Party{ID: "new", Size: 2, Max: 4},
		Secrets:    &Secrets{Match: "m"},
	})

	if base.State != "new" || base.Details != "fresh" {
		t.Errorf("scalars not replaced: %+v", base)
	}
	if base.Timestamps.Start != 0 || base.Timestamps.End != 7 {
		t.Errorf("timestamps not replaced wholesale: %+v", base.Timestamps)
	}
	if base.Party.ID != "new" || base.Secrets.Match != "m" {
		t.Errorf("party/secrets not replaced: %+v %+v", base.Party, base.Secrets)
	}
}

func TestMergeAdoptsNumericAssetIDs(t *testing.T) {
	base := &Activity{Assets: &Assets{LargeImage: "ide-logo", SmallImage: "editor"}}
	base.Merge(&Activity{Assets: &Assets{LargeImage: "123456789", SmallImage: "replacement"}})

	if base.Assets.LargeImage != "ide-logo" {
		t.Errorf("numeric echo clobbered the key: %q", base.Assets.LargeImage)
	}
	if base.Assets.LargeImageID != 123456789 {
		t.Errorf("numeric echo not adopted as id: %d", base.Assets.LargeImageID)
	}
	if base.Assets.SmallImage != "replacement" || base.Assets.SmallImageID != 0 {
		t.Errorf("textual echo should replace key and clear id: %+v", base.Assets)
	}
}

func TestMergeNilAssetsClears(t *testing.T) {
	base := &Activity{Assets: &Assets{LargeImage: "x"}}
	base.Merge(&Activity{})
	if base.Assets != nil {
		t.Errorf("assets should clear when the echo has none")
	}
}

func TestActivityJSONOmitsEmpty(t *testing.T) {
	b, err := codec.Marshal(Activity{Details: "only"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, forbidden := range []string{"timestamps", "assets", "party", "secrets", "buttons", "state"} {
		if strings.Contains(s, forbidden) {
			t.Errorf("empty field %q serialized: %s", forbidden, s)
		}
	}
}
