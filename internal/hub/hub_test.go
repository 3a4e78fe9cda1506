package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

// helper: receive one message with a timeout so tests never hang
func recv(t *testing.T, ch <-chan types.Inbound, within time.Duration) types.Inbound {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("session outbox closed unexpectedly")
		}
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for host message")
		return nil // unreachable
	}
}

func recvNothing(t *testing.T, ch <-chan types.Inbound, within time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
	}
}

func view(t *testing.T, h *Hub) View {
	t.Helper()
	reply := make(chan View, 1)
	h.Inbox() <- GetView{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func TestHub_JoinReceivesCurrentState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	name := "Classic 2009"
	h.Inbox() <- SetPhase{Phase: "ChampSelect"}
	h.Inbox() <- SetHistoric{State: types.HistoricState{Active: true, HistoricSkinID: []byte("42"), HistoricSkinName: &name}}

	out := make(chan types.Inbound, 4)
	h.Inbox() <- Join{ClientID: "s1", Outbox: out}

	if pc, ok := recv(t, out, 100*time.Millisecond).(types.PhaseChange); !ok || pc.Phase != "ChampSelect" || pc.Type != types.TypePhaseChange {
		t.Fatalf("first message must be the current phase, got %+v", pc)
	}
	hs, ok := recv(t, out, 100*time.Millisecond).(types.HistoricState)
	if !ok || !hs.Active || hs.SkinName() != name || hs.Type != types.TypeHistoricState {
		t.Fatalf("second message must be the historic state, got %+v", hs)
	}
}

func TestHub_FreshJoinGetsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	out := make(chan types.Inbound, 4)
	h.Inbox() <- Join{ClientID: "s1", Outbox: out}
	recvNothing(t, out, 30*time.Millisecond)
	if v := view(t, h); v.NumClients != 1 || v.Historic != nil {
		t.Fatalf("view = %+v", v)
	}
}

func TestHub_BroadcastAndDirectReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	a := make(chan types.Inbound, 4)
	b := make(chan types.Inbound, 4)
	h.Inbox() <- Join{ClientID: "a", Outbox: a}
	h.Inbox() <- Join{ClientID: "b", Outbox: b}

	h.Inbox() <- SetPhase{Phase: "FINALIZATION"}
	for _, ch := range []chan types.Inbound{a, b} {
		if pc := recv(t, ch, 100*time.Millisecond).(types.PhaseChange); pc.Phase != "FINALIZATION" {
			t.Fatalf("broadcast phase = %q", pc.Phase)
		}
	}

	h.Inbox() <- SendTo{ClientID: "b", Msg: types.LocalAssetURL{Type: types.TypeLocalAssetURL, AssetPath: "historic_flag.png", URL: "http://h/x.png"}}
	if u := recv(t, b, 100*time.Millisecond).(types.LocalAssetURL); u.URL != "http://h/x.png" {
		t.Fatalf("reply = %+v", u)
	}
	recvNothing(t, a, 30*time.Millisecond)
}

func TestHub_SlowSessionIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx)

	slow := make(chan types.Inbound) // unbuffered and never read
	h.Inbox() <- Join{ClientID: "slow", Outbox: slow}
	h.Inbox() <- SetPhase{Phase: "Lobby"}

	if v := view(t, h); v.NumClients != 0 {
		t.Fatalf("slow session still registered: %+v", v)
	}
	if _, ok := <-slow; ok {
		t.Fatalf("slow session outbox must be closed")
	}
}

func TestHub_ShutdownClosesOutboxes(t *testing.T) {
	h := NewHub(context.Background())
	out := make(chan types.Inbound, 1)
	h.Inbox() <- Join{ClientID: "s1", Outbox: out}
	h.Inbox() <- ShutdownHub{}

	select {
	case <-h.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-out; ok {
		t.Fatal("outbox must be closed on shutdown")
	}
}
