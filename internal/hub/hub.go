// Package hub is the host simulator's session registry. It owns the host
// state the overlays mirror and fans every change out to connected
// sessions.
package hub

import (
	"context"

	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

type HubMsg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan types.Inbound // where this session wants to receive host messages
}

type Leave struct{ ClientID string }

type SetPhase struct{ Phase string }

type SetHistoric struct{ State types.HistoricState }

// SendTo delivers Msg to a single session, e.g. the reply to an asset request.
type SendTo struct {
	ClientID string
	Msg      types.Inbound
}

type GetView struct {
	Reply chan View
}

type ShutdownHub struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (SetPhase) isHubMsg()    {}
func (SetHistoric) isHubMsg() {}
func (SendTo) isHubMsg()      {}
func (GetView) isHubMsg()     {}
func (ShutdownHub) isHubMsg() {}

type View struct {
	Phase      string
	Historic   *types.HistoricState
	NumClients int
}

type Hub struct {
	inbox    chan HubMsg
	phase    string
	historic *types.HistoricState
	clients  map[string]chan types.Inbound
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]chan types.Inbound),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has shut down.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				// A new session starts from the current host state.
				h.clients[msg.ClientID] = msg.Outbox
				if h.phase != "" {
					h.sendTo(msg.ClientID, types.PhaseChange{Type: types.TypePhaseChange, Phase: h.phase})
				}
				if h.historic != nil {
					h.sendTo(msg.ClientID, *h.historic)
				}

			case Leave:
				delete(h.clients, msg.ClientID)

			case SetPhase:
				h.phase = msg.Phase
				h.broadcast(types.PhaseChange{Type: types.TypePhaseChange, Phase: msg.Phase})

			case SetHistoric:
				st := msg.State
				st.Type = types.TypeHistoricState
				h.historic = &st
				h.broadcast(st)

			case SendTo:
				h.sendTo(msg.ClientID, msg.Msg)

			case GetView:
				msg.Reply <- View{
					Phase:      h.phase,
					Historic:   h.historic,
					NumClients: len(h.clients),
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // no more host messages for this session
		delete(h.clients, id)
	}
	h.cancel()
}

func (h *Hub) broadcast(m types.Inbound) {
	for id := range h.clients {
		h.sendTo(id, m)
	}
}

func (h *Hub) sendTo(id string, m types.Inbound) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- m:
	default:
		// Session is slow/full - drop it.
		close(ch)
		delete(h.clients, id)
	}
}
