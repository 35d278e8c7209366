// Package relay shares store change notifications between planner processes
// over Redis pub/sub, so a board open in one terminal refreshes when another
// process reorders it.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"planner-cli/internal/model"
)

// Invalidator receives changes made by other processes.
type Invalidator interface {
	Invalidate(scopes ...model.Scope)
	InvalidateAll()
}

// CommitSource reports local commits.
type CommitSource interface {
	OnCommit(fn func([]model.Scope))
}

type message struct {
	Origin string        `json:"origin"`
	Scopes []model.Scope `json:"scopes,omitempty"`
	// All asks receivers to refresh everything; sent after local changes
	// were dropped from a full queue.
	All bool      `json:"all,omitempty"`
	At  time.Time `json:"at"`
}

type Option func(*Relay)

func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.log = l
		}
	}
}

func WithQueueSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.queue = make(chan []model.Scope, n)
		}
	}
}

type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger

	queue    chan []model.Scope
	overflow atomic.Bool
	ready    chan struct{}
	once     sync.Once
}

// Dial connects to the Redis server at url and checks it answers.
func Dial(ctx context.Context, url, channel string, opts ...Option) (*Relay, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, channel, opts...), nil
}

// NewWithClient builds a relay over an existing client.
func NewWithClient(client *redis.Client, channel string, opts ...Option) *Relay {
	r := &Relay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     slog.Default(),
		queue:   make(chan []model.Scope, 64),
		ready:   make(chan struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Origin identifies this process in published messages.
func (r *Relay) Origin() string { return r.origin }

// Ready is closed once the relay is subscribed and receiving.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

// Attach queues every local commit of src for publishing. It never blocks
// the committing goroutine.
func (r *Relay) Attach(src CommitSource) {
	src.OnCommit(func(scopes []model.Scope) {
		select {
		case r.queue <- append([]model.Scope(nil), scopes...):
		default:
			r.overflow.Store(true)
		}
	})
}

// Publish announces scopes to the other processes.
func (r *Relay) Publish(ctx context.Context, scopes []model.Scope) error {
	return r.send(ctx, message{Origin: r.origin, Scopes: scopes, At: time.Now().UTC()})
}

func (r *Relay) send(ctx context.Context, m message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, b).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Run publishes queued local commits and hands remote changes to inv until
// ctx is done.
func (r *Relay) Run(ctx context.Context, inv Invalidator) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer func() { _ = ps.Close() }()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.once.Do(func() { close(r.ready) })
	r.log.Debug("relay subscribed", "channel", r.channel, "origin", r.origin)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.publishLoop(gctx) })
	g.Go(func() error { return r.receiveLoop(gctx, ps.Channel(), inv) })
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Relay) publishLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case scopes := <-r.queue:
			m := message{Origin: r.origin, Scopes: scopes, At: time.Now().UTC()}
			if r.overflow.Swap(false) {
				m.All = true
			}
			if err := r.send(ctx, m); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn("relay publish failed", "err", err)
				r.overflow.Store(true)
			}
		}
	}
}

func (r *Relay) receiveLoop(ctx context.Context, in <-chan *redis.Message, inv Invalidator) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return fmt.Errorf("relay channel closed")
			}
			var m message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				r.log.Warn("relay dropped malformed message", "err", err)
				continue
			}
			if m.Origin == r.origin {
				continue
			}
			if m.All {
				inv.InvalidateAll()
				continue
			}
			r.log.Debug("remote change", "origin", m.Origin, "scopes", len(m.Scopes))
			inv.Invalidate(m.Scopes...)
		}
	}
}

func (r *Relay) Close() error {
	return r.client.Close()
}
