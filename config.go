package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/command"
)

// Load loads Keeper from a TOML configuration.
func Load(r io.Reader) (*Config, *toml.MetaData, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't decode config: %w", err)
	}
	expandcfg(&cfg, os.Getenv)
	return &cfg, &md, nil
}

// Config is the marshaled structure of Keeper's configuration.
type Config struct {
	// Prefix is the command prefix. Defaults to "!" when empty.
	Prefix string `toml:"prefix"`
	// Owner is the user seeded into the owner role at startup.
	Owner Privilege `toml:"owner"`
	// Room is the room connection configuration.
	Room RoomCfg `toml:"room"`
	// Store is the persistence configuration.
	Store StoreCfg `toml:"store"`
	// HTTP is the debug and metrics server configuration.
	HTTP HTTPCfg `toml:"http"`
	// Rate is the per-user command rate limit.
	Rate Rate `toml:"rate"`
	// Guard is the movement guard configuration.
	Guard GuardCfg `toml:"guard"`
	// AI is the completion service configuration.
	AI AICfg `toml:"ai"`
	// Greet configures join greetings.
	Greet GreetCfg `toml:"greet"`
	// Emotes is the emote table, keyed by chat keyword.
	Emotes map[string]EmoteCfg `toml:"emotes"`
	// Presets is the teleport preset table, keyed by name.
	Presets map[string]PoseCfg `toml:"presets"`
	// Texts maps recitation names to file paths.
	Texts map[string]string `toml:"texts"`
}

// Privilege identifies a user granted a role by configuration.
type Privilege struct {
	// ID is the platform user ID.
	ID string `toml:"id"`
	// Name is the display name, for logs only.
	Name string `toml:"name"`
}

// RoomCfg is the room connection configuration.
type RoomCfg struct {
	// URL is the platform websocket endpoint.
	URL string `toml:"url"`
	// TokenFile is the path to a file containing the API token.
	TokenFile string `toml:"token"`
	// Room is the room identifier to join.
	Room string `toml:"room"`
	// Timeout is the per-request timeout in seconds.
	Timeout float64 `toml:"timeout"`
	// Retries is the reconnect backoff schedule in seconds.
	Retries []float64 `toml:"retries"`
}

// StoreCfg is the persistence configuration.
type StoreCfg struct {
	// Dir is the directory holding the JSON documents.
	Dir string `toml:"dir"`
}

// HTTPCfg is the debug and metrics server configuration.
type HTTPCfg struct {
	// Listen is the address to serve on. Empty disables the server.
	Listen string `toml:"listen"`
}

// Rate is a rate limit configuration.
type Rate struct {
	Every float64 `toml:"every"`
	Num   int     `toml:"num"`
}

// GuardCfg is the movement guard configuration.
type GuardCfg struct {
	// Vertical is the vertical delta treated as a glitch.
	Vertical float64 `toml:"vertical"`
	// Step is the displacement treated as a glitch.
	Step float64 `toml:"step"`
}

// AICfg is the completion service configuration.
type AICfg struct {
	URL string `toml:"url"`
	// KeyFile is the path to a file containing the API key.
	KeyFile string `toml:"key"`
	Model   string `toml:"model"`
	// Fallback is the reply used when the service fails.
	Fallback string `toml:"fallback"`
}

// GreetCfg configures join greetings. Hello and Again are weighted sets of
// lines; %s in a line is replaced with the user's name.
type GreetCfg struct {
	// Hello greets users never seen before.
	Hello map[string]int `toml:"hello"`
	// Again greets returning users.
	Again map[string]int `toml:"again"`
	// Welcome, if set, is sent as a DM to first-time users.
	Welcome string `toml:"welcome"`
	// After is the minimum absence in seconds before a returning user is
	// greeted again.
	After float64 `toml:"after"`
}

// EmoteCfg is one emote table entry.
type EmoteCfg struct {
	// ID is the platform emote identifier.
	ID string `toml:"id"`
	// Every is the loop interval in seconds.
	Every float64 `toml:"every"`
}

// PoseCfg is a position in the room.
type PoseCfg struct {
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Z      float64 `toml:"z"`
	Facing float64 `toml:"facing"`
}

func (p PoseCfg) pose() bridge.Pose {
	return bridge.Pose{X: p.X, Y: p.Y, Z: p.Z, Facing: p.Facing}
}

func fseconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// emotes converts the emote table to the command package's form.
func (cfg *Config) emotes() map[string]command.EmoteDef {
	m := make(map[string]command.EmoteDef, len(cfg.Emotes))
	for k, v := range cfg.Emotes {
		m[k] = command.EmoteDef{ID: v.ID, Interval: fseconds(v.Every)}
	}
	return m
}

// presets converts the preset table to the command package's form.
func (cfg *Config) presets() map[string]bridge.Pose {
	m := make(map[string]bridge.Pose, len(cfg.Presets))
	for k, v := range cfg.Presets {
		m[k] = v.pose()
	}
	return m
}

// retries converts the backoff schedule to durations.
func (cfg *RoomCfg) retries() []time.Duration {
	ds := make([]time.Duration, len(cfg.Retries))
	for i, s := range cfg.Retries {
		ds[i] = fseconds(s)
	}
	return ds
}

func expandcfg(cfg *Config, expand func(s string) string) {
	fields := []*string{
		&cfg.Room.URL,
		&cfg.Room.TokenFile,
		&cfg.Room.Room,
		&cfg.Store.Dir,
		&cfg.HTTP.Listen,
		&cfg.AI.URL,
		&cfg.AI.KeyFile,
		&cfg.Owner.ID,
		&cfg.Owner.Name,
	}
	for _, f := range fields {
		*f = os.Expand(*f, expand)
	}
	for k, v := range cfg.Texts {
		cfg.Texts[k] = os.Expand(v, expand)
	}
}
