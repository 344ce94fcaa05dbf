package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"

	"gitlab.com/zephyrtronium/pick"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/solraven/keeper/ai"
	"github.com/solraven/keeper/bridge"
	"github.com/solraven/keeper/command"
	"github.com/solraven/keeper/guard"
	"github.com/solraven/keeper/ledger"
	"github.com/solraven/keeper/metrics"
	"github.com/solraven/keeper/perms"
	"github.com/solraven/keeper/route"
	"github.com/solraven/keeper/store"
	"github.com/solraven/keeper/tasks"
)

// Keeper is the bot's full running state.
type Keeper struct {
	cfg    *Config
	client *bridge.Client
	env    *command.Env
	router *route.Router
	seen   *seenList
	hello  *pick.Dist[string]
	again  *pick.Dist[string]
	mets   *metrics.Metrics

	// self is the bot's own identity, learned from the ready event.
	self bridge.User
}

// New assembles a Keeper from configuration. It opens the store and loads
// every persisted document but does not connect to the room.
func New(cfg *Config, mets *metrics.Metrics) (*Keeper, error) {
	st, err := store.Open(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("couldn't open store: %w", err)
	}
	token, err := os.ReadFile(cfg.Room.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read room token: %w", err)
	}
	client := bridge.NewClient(bridge.Config{
		URL:     cfg.Room.URL,
		Token:   strings.TrimSpace(string(token)),
		Room:    cfg.Room.Room,
		Timeout: fseconds(cfg.Room.Timeout),
		Retries: cfg.Room.retries(),
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "!"
	}
	reg := perms.Load(st)
	if cfg.Owner.ID != "" {
		if reg.GrantOwner(cfg.Owner.ID) {
			slog.Info("seeded owner",
				slog.String("id", cfg.Owner.ID),
				slog.String("name", cfg.Owner.Name),
			)
		}
	}
	var aic *ai.Client
	if cfg.AI.URL != "" {
		key, err := os.ReadFile(cfg.AI.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("couldn't read AI key: %w", err)
		}
		aic = ai.New(cfg.AI.URL, strings.TrimSpace(string(key)), cfg.AI.Model)
	}
	led := ledger.Load(st)
	roster := client.Roster()
	actor := timedActor{a: client, lat: mets.ActionLatency}
	env := &command.Env{
		Log:        slog.Default(),
		Actor:      actor,
		Roster:     roster,
		Perms:      reg,
		Ledger:     led,
		Tasks:      tasks.New(actor, roster.Present),
		Guard:      guard.Load(st, actor, guard.Config{MaxVertical: cfg.Guard.Vertical, MaxStep: cfg.Guard.Step}),
		AI:         aic,
		Anchor:     command.LoadAnchor(st),
		Prefix:     prefix,
		Commands:   command.Table(),
		Emotes:     cfg.emotes(),
		Presets:    cfg.presets(),
		Texts:      cfg.Texts,
		AIFallback: cfg.AI.Fallback,
	}
	k := &Keeper{
		cfg:    cfg,
		client: client,
		env:    env,
		seen:   loadSeen(st),
		mets:   mets,
	}
	k.router = &route.Router{
		Env:     env,
		Roles:   reg,
		Records: led,
		Rate:    rateOf(cfg.Rate),
		Burst:   cfg.Rate.Num,
		Metrics: *mets,
	}
	if len(cfg.Greet.Hello) > 0 {
		k.hello = pick.New(pick.FromMap(cfg.Greet.Hello))
	}
	if len(cfg.Greet.Again) > 0 {
		k.again = pick.New(pick.FromMap(cfg.Greet.Again))
	}
	return k, nil
}

func rateOf(r Rate) rate.Limit {
	if r.Every <= 0 || r.Num <= 0 {
		return 0
	}
	return rate.Every(fseconds(r.Every))
}

// Run connects to the room and serves until the context closes.
func (k *Keeper) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return k.client.Connect(ctx)
	})
	group.Go(func() error {
		k.loop(ctx)
		return nil
	})
	if k.cfg.HTTP.Listen != "" {
		group.Go(func() error {
			return k.api(ctx, k.cfg.HTTP.Listen, http.NewServeMux(), k.mets.Collectors())
		})
	}
	err := group.Wait()
	k.env.Tasks.StopAll()
	return err
}

// greet welcomes a user who just joined.
func (k *Keeper) greet(ctx context.Context, u bridge.User) {
	last, known := k.seen.Mark(u.ID)
	switch {
	case !known:
		if k.hello != nil {
			line := strings.ReplaceAll(k.hello.Pick(rand.Uint32()), "%s", u.Name)
			if err := k.env.Actor.SendChat(ctx, line); err != nil {
				slog.WarnContext(ctx, "greeting failed", slog.Any("err", err))
			}
		}
		if k.cfg.Greet.Welcome != "" {
			if err := k.env.Actor.SendDM(ctx, u.ID, k.cfg.Greet.Welcome); err != nil {
				slog.WarnContext(ctx, "welcome DM failed", slog.Any("err", err))
			}
		}
	case k.again != nil && k.seen.now().Sub(last) >= fseconds(k.cfg.Greet.After):
		line := strings.ReplaceAll(k.again.Pick(rand.Uint32()), "%s", u.Name)
		if err := k.env.Actor.SendChat(ctx, line); err != nil {
			slog.WarnContext(ctx, "greeting failed", slog.Any("err", err))
		}
	}
}
