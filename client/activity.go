package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ffx64/discord-presence-go/internal/codec"
)

type ActivityType int

const (
	Playing   ActivityType = 0
	Listening ActivityType = 2
	Watching  ActivityType = 3
	Competing ActivityType = 5
)

// Byte budgets enforced by the Discord client. Values are measured after
// trimming surrounding whitespace.
const (
	maxTextLen     = 128
	maxAssetKeyLen = 32
	maxButtons     = 2
)

type Button struct {
	Label string `json:"label"`
	Url   string `json:"url"`
}

// Timestamps bound the activity in time, as unsigned milliseconds since
// the Unix epoch. Zero means unset.
type Timestamps struct {
	Start uint64 `json:"start,omitempty"`
	End   uint64 `json:"end,omitempty"`
}

// UnixMilliseconds converts a time.Time to the wire representation.
func UnixMilliseconds(t time.Time) uint64 {
	if t.IsZero() || t.Before(time.Unix(0, 0)) {
		return 0
	}
	return uint64(t.UnixMilli())
}

// Assets name the artwork shown on the presence card. When Discord
// acknowledges a SET_ACTIVITY it may replace the configured keys with
// numeric ids; Merge keeps those in the ID fields so the user-chosen
// keys survive.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`

	LargeImageID uint64 `json:"-"`
	SmallImageID uint64 `json:"-"`
}

// Party describes the group the player is in. On the wire the current
// and maximum size travel as a two-element array.
type Party struct {
	ID   string
	Size int
	Max  int
}

type partyJSON struct {
	ID   string `json:"id,omitempty"`
	Size []int  `json:"size,omitempty"` // [current, max]
}

// MarshalJSON coerces the sizes so the pair is always a legal
// [current, max] with current >= 1 and max >= current.
func (p Party) MarshalJSON() ([]byte, error) {
	size := p.Size
	if size < 1 {
		size = 1
	}
	max := p.Max
	if max < size {
		max = size
	}
	return codec.Marshal(partyJSON{ID: p.ID, Size: []int{size, max}})
}

func (p *Party) UnmarshalJSON(b []byte) error {
	var raw partyJSON
	if err := codec.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	if len(raw.Size) == 2 {
		p.Size = raw.Size[0]
		p.Max = raw.Size[1]
	}
	return nil
}

// Secrets are the opaque tokens handed to joiners and spectators. They
// must never contain server addresses or credentials in the clear.
type Secrets struct {
	Join     string `json:"join,omitempty"`
	Spectate string `json:"spectate,omitempty"`
	Match    string `json:"match,omitempty"`
}

// Activity is the rich presence record published to Discord.
type Activity struct {
	Type       ActivityType `json:"type"`
	State      string       `json:"state,omitempty"`
	Details    string       `json:"details,omitempty"`
	Timestamps *Timestamps  `json:"timestamps,omitempty"`
	Assets     *Assets      `json:"assets,omitempty"`
	Party      *Party       `json:"party,omitempty"`
	Secrets    *Secrets     `json:"secrets,omitempty"`
	Buttons    []Button     `json:"buttons,omitempty"`
}

func (a Activity) IsEmpty() bool {
	return a.State == "" &&
		a.Details == "" &&
		a.Timestamps == nil &&
		a.Assets == nil &&
		a.Party == nil &&
		a.Secrets == nil &&
		len(a.Buttons) == 0
}

// checkText trims s and enforces its byte budget.
func checkText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) > max {
		return "", fmt.Errorf("%s is %d bytes, limit %d: %w", field, len(s), max, ErrStringOutOfRange)
	}
	return s, nil
}

// validate trims every text field in place and enforces the byte
// budgets. It returns advisory warnings for shapes Discord accepts but
// that rarely do what the author meant.
func (a *Activity) validate() ([]string, error) {
	var warnings []string
	var err error

	if a.State, err = checkText("state", a.State, maxTextLen); err != nil {
		return nil, err
	}
	if a.Details, err = checkText("details", a.Details, maxTextLen); err != nil {
		return nil, err
	}

	if a.Assets != nil {
		fields := []struct {
			name string
			val  *string
			max  int
		}{
			{"assets.large_image", &a.Assets.LargeImage, maxAssetKeyLen},
			{"assets.large_text", &a.Assets.LargeText, maxTextLen},
			{"assets.small_image", &a.Assets.SmallImage, maxAssetKeyLen},
			{"assets.small_text", &a.Assets.SmallText, maxTextLen},
		}
		for _, f := range fields {
			if *f.val, err = checkText(f.name, *f.val, f.max); err != nil {
				return nil, err
			}
		}
	}

	if a.Party != nil {
		if a.Party.ID, err = checkText("party.id", a.Party.ID, maxTextLen); err != nil {
			return nil, err
		}
		if a.Party.Size < 1 || a.Party.Max < a.Party.Size {
			warnings = append(warnings,
				fmt.Sprintf("party size %d/%d will be coerced to a legal [current, max] pair",
					a.Party.Size, a.Party.Max))
		}
	}

	if a.Secrets != nil {
		fields := []struct {
			name string
			val  *string
		}{
			{"secrets.join", &a.Secrets.Join},
			{"secrets.spectate", &a.Secrets.Spectate},
			{"secrets.match", &a.Secrets.Match},
		}
		for _, f := range fields {
			if *f.val, err = checkText(f.name, *f.val, maxTextLen); err != nil {
				return nil, err
			}
		}
		if a.Party == nil {
			warnings = append(warnings, "secrets are set without a party; join/spectate will have nothing to attach to")
		}
		if len(a.Buttons) > 0 {
			warnings = append(warnings, "buttons and secrets are mutually exclusive; buttons win")
			a.Secrets = nil
		}
	}

	a.Buttons = validButtons(a.Buttons)
	return warnings, nil
}

// validButtons keeps at most two buttons with a non-empty label and an
// http(s) url, trimmed.
func validButtons(in []Button) []Button {
	var out []Button
	for _, b := range in {
		label := strings.TrimSpace(b.Label)
		url := strings.TrimSpace(b.Url)
		if label == "" || url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
			continue
		}
		out = append(out, Button{Label: label, Url: url})
		if len(out) == maxButtons {
			break
		}
	}
	return out
}

// Clone returns a deep copy: mutating the original afterwards never
// affects the copy.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	out := *a
	if a.Timestamps != nil {
		ts := *a.Timestamps
		out.Timestamps = &ts
	}
	if a.Assets != nil {
		as := *a.Assets
		out.Assets = &as
	}
	if a.Party != nil {
		p := *a.Party
		out.Party = &p
	}
	if a.Secrets != nil {
		s := *a.Secrets
		out.Secrets = &s
	}
	if a.Buttons != nil {
		out.Buttons = append([]Button(nil), a.Buttons...)
	}
	return &out
}

// Merge folds other into a. Scalars are replaced; timestamps, party and
// secrets are replaced wholesale. Asset keys echoed back by Discord as
// numeric ids are adopted into the ID fields so the configured keys are
// not clobbered.
func (a *Activity) Merge(other *Activity) {
	if other == nil {
		return
	}
	a.Type = other.Type
	a.State = other.State
	a.Details = other.Details
	a.Timestamps = other.Timestamps.clone()
	a.Party = other.Party.clone()
	a.Secrets = other.Secrets.clone()
	a.Buttons = append([]Button(nil), other.Buttons...)
	a.mergeAssets(other.Assets)
}

func (t *Timestamps) clone() *Timestamps {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func (p *Party) clone() *Party {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func (s *Secrets) clone() *Secrets {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

func (a *Activity) mergeAssets(other *Assets) {
	if other == nil {
		a.Assets = nil
		return
	}
	if a.Assets == nil {
		a.Assets = &Assets{}
	}
	a.Assets.LargeText = other.LargeText
	a.Assets.SmallText = other.SmallText
	mergeAssetKey(&a.Assets.LargeImage, &a.Assets.LargeImageID, other.LargeImage)
	mergeAssetKey(&a.Assets.SmallImage, &a.Assets.SmallImageID, other.SmallImage)
}

// mergeAssetKey applies one echoed image slot: a numeric echo is a
// server-assigned id and leaves the key alone, anything else replaces
// the key and clears the id.
func mergeAssetKey(key *string, id *uint64, echoed string) {
	if n, err := strconv.ParseUint(echoed, 10, 64); err == nil && echoed != "" {
		*id = n
		return
	}
	*key = echoed
	*id = 0
}
