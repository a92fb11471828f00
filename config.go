package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	ModeRelay = "relay"
	ModeBot   = "bot"
)

// Config is the process configuration. Environment variables set the
// defaults and command-line flags override them.
type Config struct {
	Mode      string        `env:"MODE" envDefault:"relay"`
	Addr      string        `env:"RELAY_ADDR" envDefault:":8080"`
	MaxRooms  int           `env:"MAX_ROOMS" envDefault:"100"`
	RelayURL  string        `env:"RELAY_URL" envDefault:"ws://localhost:8080/ws"`
	Name      string        `env:"PLAYER_NAME" envDefault:"Bot"`
	Room      string        `env:"ROOM" envDefault:"Arena"`
	Create    bool          `env:"CREATE_ROOM"`
	StartAt   int           `env:"BOT_START_AT" envDefault:"2"`
	Rematches int           `env:"BOT_REMATCHES" envDefault:"1"`
	Seed      uint64        `env:"BOT_SEED"`
	Timeout   time.Duration `env:"BOT_TIMEOUT" envDefault:"5m"`
	History   string        `env:"HISTORY_DB"`
	Scene     string        `env:"GAME_SCENE" envDefault:"Game-0"`
	Tie       TiePolicy     `env:"MATCH_TIE_POLICY" envDefault:"wait"`
}

// LoadConfig reads the process environment and args
func LoadConfig(args []string) (Config, error) {
	return parseConfig(environ(os.Environ()), args)
}

func parseConfig(vars map[string]string, args []string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("shooter-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "relay or bot")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.IntVar(&cfg.MaxRooms, "max-rooms", cfg.MaxRooms, "room limit of the relay")
	fs.StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "relay websocket URL (bot)")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "nickname (bot)")
	fs.StringVar(&cfg.Room, "room", cfg.Room, "room to create or join (bot)")
	fs.BoolVar(&cfg.Create, "create", cfg.Create, "create the room instead of joining (bot)")
	fs.IntVar(&cfg.StartAt, "start-at", cfg.StartAt, "participants the master waits for (bot)")
	fs.IntVar(&cfg.Rematches, "rematches", cfg.Rematches, "rematches the master starts (bot)")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed, 0 for random (bot)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "give up after this long (bot)")
	fs.StringVar(&cfg.History, "history", cfg.History, "SQLite match history path, empty disables")
	fs.StringVar(&cfg.Scene, "scene", cfg.Scene, "game scene to load")
	tie := cfg.Tie.String()
	fs.StringVar(&tie, "tie", tie, "wait or draw when nobody survives")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	var err error
	if cfg.Tie, err = ParseTiePolicy(tie); err != nil {
		return cfg, err
	}
	cfg.Mode = strings.ToLower(cfg.Mode)
	if cfg.Mode != ModeRelay && cfg.Mode != ModeBot {
		return cfg, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.StartAt < 1 || cfg.StartAt > MaxPlayer {
		return cfg, fmt.Errorf("start-at must be between 1 and %d", MaxPlayer)
	}
	return cfg, nil
}

func environ(kv []string) map[string]string {
	m := make(map[string]string, len(kv))
	for _, e := range kv {
		if k, v, ok := strings.Cut(e, "="); ok {
			m[k] = v
		}
	}
	return m
}
