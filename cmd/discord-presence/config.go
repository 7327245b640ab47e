package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ffx64/discord-presence-go/client"
)

// Config is the YAML file layout for the run command.
type Config struct {
	ApplicationID string `yaml:"application_id"`
	Pipe          int    `yaml:"pipe"`
	LogLevel      string `yaml:"log_level"`
	MetricsAddr   string `yaml:"metrics_addr"`
	URIScheme     bool   `yaml:"uri_scheme_registered"`

	Activity ActivityConfig `yaml:"activity"`
}

// ActivityConfig describes the presence to publish.
type ActivityConfig struct {
	State      string `yaml:"state"`
	Details    string `yaml:"details"`
	LargeImage string `yaml:"large_image"`
	LargeText  string `yaml:"large_text"`
	SmallImage string `yaml:"small_image"`
	SmallText  string `yaml:"small_text"`
	PartyID    string `yaml:"party_id"`
	PartySize  int    `yaml:"party_size"`
	PartyMax   int    `yaml:"party_max"`
	StartNow   bool   `yaml:"start_now"`

	Buttons []ButtonConfig `yaml:"buttons"`
}

type ButtonConfig struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

func loadConfig(path string) (Config, error) {
	cfg := Config{Pipe: -1, LogLevel: "info"}
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// toActivity builds the library presence record out of the config.
func (a ActivityConfig) toActivity() *client.Activity {
	act := &client.Activity{
		State:   a.State,
		Details: a.Details,
	}
	if a.LargeImage != "" || a.SmallImage != "" {
		act.Assets = &client.Assets{
			LargeImage: a.LargeImage,
			LargeText:  a.LargeText,
			SmallImage: a.SmallImage,
			SmallText:  a.SmallText,
		}
	}
	if a.PartySize > 0 {
		act.Party = &client.Party{ID: a.PartyID, Size: a.PartySize, Max: a.PartyMax}
	}
	if a.StartNow {
		act.Timestamps = &client.Timestamps{Start: client.UnixMilliseconds(time.Now())}
	}
	for _, b := range a.Buttons {
		act.Buttons = append(act.Buttons, client.Button{Label: b.Label, Url: b.URL})
	}
	if act.IsEmpty() {
		return nil
	}
	return act
}

// newLogger builds a console logger at the given level. The level
// string is tolerant of case and common synonyms.
func newLogger(level string) zerolog.Logger {
	lvl := parseLevel(level)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "none", "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
