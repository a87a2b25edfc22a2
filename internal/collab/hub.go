// Package collab runs live chart rooms: clients connected to the same
// chart share presence and submit operations that the hub applies to one
// authoritative store and fans out to everyone else.
package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
	"github.com/mla/mla/chart-go/internal/metrics"
)

const (
	DefaultAutosave = 30 * time.Second
	persistTimeout  = 10 * time.Second
)

// ChartLoader returns the latest saved version of a chart.
type ChartLoader func(ctx context.Context, chartID string) (chart.SaveFile, error)

// ChartSaver stores a chart as its next version.
type ChartSaver func(ctx context.Context, chartID string, file chart.SaveFile) error

type Room struct {
	chartID  string
	clients  map[string]*Client // clientID -> client
	presence *Presence
	state    *ChartState

	// ops orders apply and broadcast so clients see operations in
	// server sequence order.
	ops sync.Mutex
}

func NewRoom(chartID string, state *ChartState) *Room {
	return &Room{
		chartID:  chartID,
		clients:  make(map[string]*Client),
		presence: NewPresence(),
		state:    state,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // chartID -> room
	register   chan *Client
	unregister chan *Client

	load     ChartLoader
	save     ChartSaver
	metrics  *metrics.Collector
	autosave time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHub creates a hub that loads rooms with load and persists them with
// save. collector may be nil.
func NewHub(load ChartLoader, save ChartSaver, collector *metrics.Collector) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		load:       load,
		save:       save,
		metrics:    collector,
		autosave:   DefaultAutosave,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetAutosave changes how often dirty rooms are saved. Call before Run.
func (h *Hub) SetAutosave(d time.Duration) {
	if d > 0 {
		h.autosave = d
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.autosave)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			return
		}
	}
}

// Stop saves every dirty room and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ChartID]
	h.mu.Unlock()
	if !ok {
		state, err := h.loadState(client.ChartID)
		if err != nil {
			slog.Warn("open room failed", "chart", client.ChartID, "error", err)
			if msg, err := newMessage(TypeError, ErrorPayload{Message: "chart not available"}); err == nil {
				client.Send(msg)
			}
			client.closeSend()
			return
		}
		room = NewRoom(client.ChartID, state)
		h.mu.Lock()
		h.rooms[client.ChartID] = room
		h.mu.Unlock()
	}

	h.mu.Lock()
	room.clients[client.ClientID] = client
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.RoomClients.Inc()
	}

	if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: client.ClientID, UserID: client.UserID}); err == nil {
		client.Send(msg)
	}

	room.ops.Lock()
	if msg, err := newMessage(TypeDocSync, room.state.Sync()); err == nil {
		client.Send(msg)
	}
	room.ops.Unlock()

	// Send current presence state to new client
	if msg, err := room.presence.StateMessage(); err == nil {
		client.Send(msg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.ChartID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "chart", client.ChartID)
}

func (h *Hub) loadState(chartID string) (*ChartState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	file, err := h.load(ctx, chartID)
	if err != nil {
		return nil, err
	}
	return NewChartState(file)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.ChartID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	client.closeSend()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.ChartID)
	}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.RoomClients.Dec()
	}

	if empty {
		h.persist(room)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.ChartID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "chart", client.ChartID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var in PresencePayload
	if err := json.Unmarshal(msg.Payload, &in); err != nil {
		slog.Warn("invalid presence payload", "error", err, "user", sender.UserID)
		return
	}

	room, ok := h.room(sender.ChartID)
	if !ok {
		return
	}

	p, err := room.presence.Update(sender.UserID, sender.DisplayName, in, room.state.Has)
	if err != nil {
		if msg, err := newMessage(TypeError, ErrorPayload{Message: err.Error()}); err == nil {
			sender.Send(msg)
		}
		return
	}
	h.broadcastPresence(room, sender.UserID, p, sender.ClientID)
}

func (h *Hub) broadcastPresence(room *Room, userID string, p PresencePayload, excludeClientID string) {
	out, err := newMessage(TypePresenceUpdate, p)
	if err != nil {
		slog.Error("marshal presence", "error", err)
		return
	}
	out.UserID = userID
	h.broadcastToRoom(room.chartID, out, excludeClientID)
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		return
	}
	op := submit.Operation

	room, ok := h.room(sender.ChartID)
	if !ok {
		return
	}

	room.ops.Lock()
	defer room.ops.Unlock()

	seq, err := room.state.ApplyOperation(op)
	if err != nil {
		h.countOp(op.Type, "rejected")
		slog.Debug("operation rejected", "op", op.Type, "error", err, "user", sender.UserID)
		if nack, err := newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}); err == nil {
			sender.Send(nack)
		}
		return
	}
	h.countOp(op.Type, "ok")

	ack, err := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: serverTimestamp(),
	})
	if err == nil {
		ack.Seq = seq
		sender.Send(ack)
	}

	broadcast, err := newMessage(TypeOpBroadcast, OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	if err != nil {
		slog.Error("marshal operation broadcast", "error", err)
		return
	}
	broadcast.Seq = seq
	broadcast.UserID = sender.UserID
	h.broadcastToRoom(sender.ChartID, broadcast, sender.ClientID)

	if removes(op.Type) {
		for user, p := range room.presence.Prune(room.state.Has) {
			h.broadcastPresence(room, user, p, "")
		}
	}
}

func removes(opType string) bool {
	return opType == OpObjectRemove || opType == OpVersionRemove
}

func (h *Hub) countOp(typ, status string) {
	if h.metrics != nil {
		h.metrics.RoomOps.WithLabelValues(typ, status).Inc()
	}
}

func (h *Hub) room(chartID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[chartID]
	return room, ok
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.persist(r)
	}
}

func (h *Hub) persist(room *Room) {
	file, dirty := room.state.TakeDirty()
	if !dirty {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := h.save(ctx, room.chartID, file); err != nil {
		slog.Error("save room failed", "chart", room.chartID, "error", err)
		room.state.MarkDirty()
		return
	}
	slog.Info("room saved", "chart", room.chartID)
}

func (h *Hub) broadcastToRoom(chartID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[chartID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
