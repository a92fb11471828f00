package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
)

const (
	botRetryEvery   = 1.0 // seconds between room attempts
	botRematchAfter = 2.0 // seconds the master waits on the result screen
	botFireRange    = 14.0
)

// Bot scripts a participant: it enters a room, readies up, lets the
// master start, then aims at the nearest opponent and keeps firing.
type Bot struct {
	Room      string
	Create    bool
	StartAt   int
	Rematches int

	cancel    context.CancelFunc
	readyIn   string
	startedIn string
	retry     float64
	resultFor float64
	seen      *Match
	strafe    float64
	finished  bool
}

// Finished reports whether the bot has played all its matches
func (b *Bot) Finished() bool { return b.finished }

// Input is polled once per tick by Peer.Run
func (b *Bot) Input(p *Peer) Input {
	dt := TickDuration.Seconds()
	switch p.Stage() {
	case StageLobby:
		b.retry -= dt
		if b.retry <= 0 {
			b.retry = botRetryEvery
			var err error
			if b.Create {
				err = p.CreateRoom(b.Room)
			} else {
				err = p.JoinRoom(b.Room)
			}
			if err != nil {
				log.Printf("bot: room request: %v", err)
			}
		}
	case StageRoom:
		if b.readyIn != p.Room() {
			if err := p.SetReady(); err != nil {
				log.Printf("bot: ready: %v", err)
			}
			b.readyIn = p.Room()
		}
		if b.startedIn != p.Room() && p.Store().IsMaster() && p.Roster().Count() >= b.StartAt {
			err := p.StartGame()
			switch {
			case err == nil:
				b.startedIn = p.Room()
			case !errors.Is(err, ErrNotAllReady):
				log.Printf("bot: start: %v", err)
			}
		}
	case StageMatch:
		return b.play(p, dt)
	}
	return Input{}
}

func (b *Bot) play(p *Peer, dt float64) Input {
	m := p.Match()
	if m == nil {
		return Input{}
	}
	if m != b.seen {
		b.seen = m
		b.resultFor = 0
	}
	switch m.Phase() {
	case PhaseResult:
		b.resultFor += dt
		if !p.Store().IsMaster() {
			// nobody restarted the match
			if b.resultFor > 3*botRematchAfter {
				b.finish()
			}
			return Input{}
		}
		if b.resultFor < botRematchAfter {
			return Input{}
		}
		if b.Rematches <= 0 {
			b.finish()
			return Input{}
		}
		if err := p.PlayAgain(); err != nil {
			log.Printf("bot: play again: %v", err)
			return Input{}
		}
		b.Rematches--
		return Input{}
	case PhaseGameplay:
	default:
		return Input{}
	}

	me, ok := m.Avatar(p.Store().Local())
	if !ok || me.Dead {
		return Input{}
	}
	target := nearestEnemy(m, me)
	if target == nil {
		return Input{}
	}
	to := target.Pos.Sub(me.Pos)
	dist := to.Len()
	aim := DirYaw(to)

	// circle the target: side step, closing in when far away
	b.strafe += dt
	side := YawDir(aim + 90)
	if math.Sin(b.strafe) < 0 {
		side = side.Scale(-1)
	}
	move := side
	if dist > botFireRange/2 {
		move = move.Add(to.Normalized())
	}
	return Input{
		Move:   move.Normalized(),
		Aim:    aim,
		Fire:   dist <= botFireRange,
		Sprint: dist > botFireRange,
	}
}

func (b *Bot) finish() {
	if b.finished {
		return
	}
	b.finished = true
	if b.cancel != nil {
		b.cancel()
	}
}

func nearestEnemy(m *Match, me *Avatar) *Avatar {
	var best *Avatar
	bestDist := math.Inf(1)
	for _, a := range m.Avatars() {
		if a.Actor == me.Actor || a.Dead || a.Left {
			continue
		}
		if d := a.Pos.Sub(me.Pos).Len(); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// botSink logs what a headless participant would have shown
func botSink(name string) EventSink {
	return EventFunc(func(e Event) {
		switch e.Kind {
		case EvtShot, EvtHit:
			return
		}
		log.Printf("bot %s: %s", name, e)
	})
}

// RunBot plays as a scripted participant until the bot finishes, the
// timeout expires or the relay drops the connection.
func RunBot(ctx context.Context, cfg Config) error {
	var history *History
	if cfg.History != "" {
		h, err := OpenHistory(cfg.History)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer h.Close()
		history = h
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	peerCfg := PeerConfig{
		Scene: cfg.Scene,
		Tie:   cfg.Tie,
		Seed:  cfg.Seed,
		Sink:  botSink(cfg.Name),
	}
	if history != nil {
		peerCfg.History = history
	}
	peer := NewPeer(peerCfg, WSDialer(cfg.RelayURL))
	bot := &Bot{
		Room:      cfg.Room,
		Create:    cfg.Create,
		StartAt:   cfg.StartAt,
		Rematches: cfg.Rematches,
		cancel:    cancel,
	}

	if err := peer.Connect(ctx, cfg.Name); err != nil {
		return err
	}
	err := peer.Run(ctx, bot.Input)
	if bot.Finished() {
		err = nil
	}

	for _, s := range peer.Results() {
		outcome := "draw"
		if !s.Draw {
			outcome = s.WinnerName + " won"
		}
		log.Printf("bot %s: match %s in %s: %s after %s", cfg.Name, s.ID, s.Room, outcome, s.Duration)
	}
	if history != nil {
		if t, terr := history.Totals(context.Background()); terr == nil {
			log.Printf("bot %s: %d played, %d won, %d drawn", cfg.Name, t.Played, t.Won, t.Draws)
		}
	}
	return err
}
