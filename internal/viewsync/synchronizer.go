// Package viewsync keeps the historic flag on the client UI consistent with
// the latest host state.
//
// A Synchronizer is an actor: host messages, timers and DOM mutations all
// arrive as messages on one inbox and are handled to completion, one at a
// time. Deferred work is never cancelled; it re-checks the current phase and
// state when it fires and does nothing if the world moved on.
package viewsync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
	"github.com/DoyleJ11/historic-flag-overlay/internal/decor"
	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
	"github.com/DoyleJ11/historic-flag-overlay/internal/engine"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

type Msg interface{ isSyncMsg() }

// FromHost carries one decoded bridge message.
type FromHost struct {
	Msg types.Inbound
}

func (FromHost) isSyncMsg() {}

// Mutated reports a structural change inside the observed scope.
type Mutated struct{}

func (Mutated) isSyncMsg() {}

type GetSnapshot struct {
	Reply chan Snapshot
}

func (GetSnapshot) isSyncMsg() {}

type Shutdown struct{}

func (Shutdown) isSyncMsg() {}

// syncRequest is an externally triggered Synchronize; it starts a fresh
// retry budget.
type syncRequest struct{}

func (syncRequest) isSyncMsg() {}

type retryTick struct{}

func (retryTick) isSyncMsg() {}

type mutationTick struct{}

func (mutationTick) isSyncMsg() {}

type labelExpired struct{ gen int }

func (labelExpired) isSyncMsg() {}

// Snapshot is a copy of the synchronizer's state for diagnostics and tests.
type Snapshot struct {
	State     engine.State
	Retries   int
	TargetKey string
	Label     string
}

// Sender is the outbound half of the bridge.
type Sender interface {
	Send(v any) error
}

type Synchronizer struct {
	inbox chan Msg
	done  chan struct{}

	doc    dom.Document
	sender Sender
	log    *zap.Logger
	cfg    config.View
	loc    Locator

	state           engine.State
	retries         int
	retryPending    bool
	mutationPending bool
	target          dom.Element
	targetKey       string
	labelText       string
	labelGen        int

	after func(d time.Duration, f func())
	now   func() time.Time
	post  func(Msg)
}

func New(doc dom.Document, sender Sender, log *zap.Logger, cfg config.View, loc Locator) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{
		inbox:  make(chan Msg, 64),
		done:   make(chan struct{}),
		doc:    doc,
		sender: sender,
		log:    log,
		cfg:    cfg,
		loc:    loc,
		state: engine.NewEmptyState(engine.Rules{
			AssetPath:       cfg.AssetPath,
			PhaseEnterDelay: cfg.PhaseEnterDelay,
			HistoricDelays:  cfg.HistoricDelays,
		}),
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		now:   time.Now,
	}
	s.post = s.enqueue
	return s
}

// Inbox exposes the actor's mailbox.
func (s *Synchronizer) Inbox() chan<- Msg { return s.inbox }

// Deliver is the bridge handler.
func (s *Synchronizer) Deliver(m types.Inbound) {
	s.post(FromHost{Msg: m})
}

func (s *Synchronizer) enqueue(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

// Run processes messages until ctx ends or a Shutdown arrives.
func (s *Synchronizer) Run(ctx context.Context) error {
	defer close(s.done)

	if err := s.doc.Observe(ctx, s.loc.Scope, func() { s.post(Mutated{}) }); err != nil {
		s.log.Warn("dom observation unavailable", zap.Error(err))
	}
	for _, d := range s.cfg.InitDelays {
		s.schedule(d, syncRequest{})
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m := <-s.inbox:
			if _, ok := m.(Shutdown); ok {
				s.clearTarget()
				s.removeLabel()
				return nil
			}
			s.handle(m)
		}
	}
}

// Snapshot asks the actor for a copy of its state.
func (s *Synchronizer) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.inbox <- GetSnapshot{Reply: reply}:
	case <-s.done:
		return Snapshot{}, errors.New("synchronizer stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, errors.New("synchronizer stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Synchronizer) handle(m Msg) {
	switch msg := m.(type) {
	case FromHost:
		effects, newState, err := engine.Apply(s.state, msg.Msg)
		if err != nil {
			if errors.Is(err, engine.ErrForeignAsset) {
				s.log.Debug("ignoring asset url", zap.Any("msg", msg.Msg))
			} else {
				s.log.Warn("unhandled host message", zap.Error(err))
			}
			break
		}
		s.state = newState
		for _, e := range effects {
			s.perform(e)
		}

	case syncRequest:
		s.retries = 0
		s.synchronize()

	case retryTick:
		s.retryPending = false
		if !s.state.InTarget {
			break
		}
		s.synchronize()

	case Mutated:
		if !s.state.InTarget || !s.state.Active || s.mutationPending {
			break
		}
		s.mutationPending = true
		s.schedule(s.cfg.MutationDebounce, mutationTick{})

	case mutationTick:
		s.mutationPending = false
		if s.state.InTarget && s.state.Active {
			s.retries = 0
			s.synchronize()
		}

	case labelExpired:
		if msg.gen == s.labelGen {
			s.removeLabel()
		}

	case GetSnapshot:
		msg.Reply <- Snapshot{
			State:     s.state,
			Retries:   s.retries,
			TargetKey: s.targetKey,
			Label:     s.labelText,
		}
	}
}

func (s *Synchronizer) perform(e engine.Effect) {
	switch e.Type {
	case engine.EffSync:
		s.schedule(e.Delay, syncRequest{})

	case engine.EffClear:
		s.clearTarget()
		s.retries = 0

	case engine.EffShowLabel:
		s.labelGen++
		if err := s.doc.ShowLabel(e.Text); err != nil {
			s.log.Warn("show label", zap.Error(err))
			break
		}
		s.labelText = e.Text
		s.schedule(s.cfg.LabelTTL, labelExpired{gen: s.labelGen})

	case engine.EffRemoveLabel:
		s.labelGen++
		s.removeLabel()
	}
}

// synchronize reconciles the target element with the current state.
func (s *Synchronizer) synchronize() {
	if !s.state.InTarget {
		return
	}

	el, err := s.loc.Locate(s.doc)
	if err != nil {
		if !errors.Is(err, ErrElementNotFound) {
			s.log.Debug("locate target", zap.Error(err))
		}
		s.notFound()
		return
	}
	s.retries = 0

	if s.target != nil && s.targetKey != el.Key() {
		// the selection moved to another node
		s.clearTarget()
	}
	s.target, s.targetKey = el, el.Key()

	if !s.state.Active {
		if err := decor.Clear(el, s.state.AssetURL); err != nil {
			s.log.Debug("clear decoration", zap.Error(err))
		}
		return
	}
	if s.state.AssetURL == "" {
		if engine.NeedsAsset(s.state) {
			s.requestAsset()
		}
		return
	}
	if err := decor.Apply(el, s.state.AssetURL); err != nil {
		s.log.Warn("apply decoration", zap.Error(err))
		return
	}
	s.log.Debug("decoration applied", zap.String("key", s.targetKey))
}

func (s *Synchronizer) notFound() {
	s.retries++
	if s.retries > s.cfg.MaxRetries {
		if s.retries == s.cfg.MaxRetries+1 {
			s.log.Warn("target element not found, giving up until next update",
				zap.Int("attempts", s.retries))
		}
		return
	}
	if !s.retryPending {
		s.retryPending = true
		s.schedule(s.cfg.RetryDelay, retryTick{})
	}
}

func (s *Synchronizer) requestAsset() {
	req := types.NewRequestLocalAsset(s.state.Rules.AssetPath, s.now())
	if err := s.sender.Send(req); err != nil {
		s.log.Warn("request asset", zap.String("assetPath", req.AssetPath), zap.Error(err))
		return
	}
	s.state = engine.MarkAssetRequested(s.state)
	s.log.Debug("asset requested", zap.String("assetPath", req.AssetPath))
}

func (s *Synchronizer) clearTarget() {
	if s.target == nil {
		return
	}
	if err := decor.Clear(s.target, s.state.AssetURL); err != nil {
		s.log.Debug("clear previous target", zap.String("key", s.targetKey), zap.Error(err))
	}
	s.target, s.targetKey = nil, ""
}

func (s *Synchronizer) removeLabel() {
	if s.labelText == "" {
		return
	}
	if err := s.doc.RemoveLabel(); err != nil {
		s.log.Debug("remove label", zap.Error(err))
	}
	s.labelText = ""
}

func (s *Synchronizer) schedule(d time.Duration, m Msg) {
	s.after(d, func() { s.post(m) })
}
