package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

const storeTimeout = 10 * time.Second

// DocLoader fetches the stored document when a room opens.
type DocLoader func(ctx context.Context, pictogramID string) (*document.Node, error)

// DocSaver persists a room's document.
type DocSaver func(ctx context.Context, pictogramID string, root *document.Node) error

type Room struct {
	pictogramID string
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	state       *DocumentState
	// serializes apply and broadcast so peers see operations in
	// server sequence order
	opMu sync.Mutex
}

func NewRoom(pictogramID string, state *DocumentState) *Room {
	return &Room{
		pictogramID: pictogramID,
		clients:     make(map[string]*Client),
		presence:    NewPresenceManager(),
		state:       state,
	}
}

// Hub owns every open room. Room membership changes and autosaves run on
// the Run goroutine; messages are handled on each client's read goroutine.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // pictogramID -> room
	register   chan *Client
	unregister chan *Client
	loader     DocLoader
	saver      DocSaver
	autosave   time.Duration
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub. A nil loader opens rooms on an empty document and
// a nil saver disables persistence. autosave <= 0 saves only when a room
// empties and on Stop.
func NewHub(loader DocLoader, saver DocSaver, autosave time.Duration) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		loader:     loader,
		saver:      saver,
		autosave:   autosave,
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)

	var tick <-chan time.Time
	if h.autosave > 0 {
		ticker := time.NewTicker(h.autosave)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-tick:
			h.saveDirty()
		case <-h.stop:
			h.saveDirty()
			h.closeAll()
			return
		}
	}
}

// Stop saves every dirty room, disconnects all clients and waits for Run
// to return. Run must have been started.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.stopped
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.stop:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

// Snapshot returns the live document of an open room.
func (h *Hub) Snapshot(pictogramID string) (*document.Node, int64, bool) {
	room, ok := h.room(pictogramID)
	if !ok {
		return nil, 0, false
	}
	root, seq := room.state.Document()
	return root, seq, true
}

func (h *Hub) room(pictogramID string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[pictogramID]
	return room, ok
}

func (h *Hub) load(pictogramID string) (*document.Node, error) {
	if h.loader == nil {
		return document.Empty(0, 0), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	return h.loader(ctx, pictogramID)
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.room(client.PictogramID)
	if !ok {
		// Only Run creates rooms, so loading outside the lock is safe.
		root, err := h.load(client.PictogramID)
		if err != nil {
			slog.Error("load pictogram", "error", err, "pictogram", client.PictogramID)
			client.Send(newMessage(TypeError, ErrorPayload{Message: "could not open pictogram"}))
			client.close()
			return
		}
		room = NewRoom(client.PictogramID, NewDocumentState(root))
	}

	h.mu.Lock()
	h.rooms[client.PictogramID] = room
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	client.Send(newMessage(TypeWelcome, WelcomePayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	}))
	client.Send(docSyncMessage(room.state))
	client.Send(room.presence.StateMessage())

	join := newMessage(TypePresenceJoin, PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	join.UserID = client.UserID
	h.broadcastToRoom(client.PictogramID, join, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "pictogram", client.PictogramID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.PictogramID]
	if !ok || room.clients[client.ClientID] != client {
		h.mu.Unlock()
		client.close()
		return
	}

	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.PictogramID)
	}
	h.mu.Unlock()

	slog.Info("client left", "user", client.UserID, "pictogram", client.PictogramID)

	if empty {
		h.saveRoom(room)
		return
	}

	leave := newMessage(TypePresenceLeave, PresenceLeavePayload{UserID: client.UserID})
	leave.UserID = client.UserID
	h.broadcastToRoom(client.PictogramID, leave, "")
}

func (h *Hub) saveRoom(room *Room) {
	if h.saver == nil || !room.state.Dirty() {
		return
	}
	root, seq := room.state.Document()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.saver(ctx, room.pictogramID, root); err != nil {
		slog.Error("save pictogram", "error", err, "pictogram", room.pictogramID)
		return
	}
	room.state.MarkSaved(seq)
	slog.Info("saved pictogram", "pictogram", room.pictogramID, "seq", seq)
}

func (h *Hub) saveDirty() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		h.saveRoom(r)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, room := range h.rooms {
		for _, c := range room.clients {
			c.close()
		}
		delete(h.rooms, id)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.room(sender.PictogramID)
	if !ok {
		return
	}

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(room, sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(room, sender, msg)
	case TypeDocRequest:
		h.handleDocRequest(room, sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeError, ErrorPayload{Message: "unknown message type " + msg.Type}))
	}
}

func (h *Hub) handlePresenceUpdate(room *Room, sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	room.presence.Update(sender.UserID, presence)

	out := newMessage(TypePresenceUpdate, presence)
	out.UserID = sender.UserID
	h.broadcastToRoom(room.pictogramID, out, sender.ClientID)
}

func (h *Hub) handleOpSubmit(room *Room, sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{Reason: "invalid payload"}))
		return
	}
	op := submit.Operation

	room.opMu.Lock()
	defer room.opMu.Unlock()

	seq, err := room.state.ApplyOperation(&op, sender.UserID)
	if err != nil {
		slog.Debug("operation rejected", "error", err, "op", op.ID, "type", op.Type, "user", sender.UserID)
		sender.Send(newMessage(TypeOpNack, OperationNackPayload{OperationID: op.ID, Reason: err.Error()}))
		return
	}

	ack := newMessage(TypeOpAck, OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: serverTimestamp(),
	})
	ack.Seq = seq
	sender.Send(ack)

	out := newMessage(TypeOpBroadcast, OperationBroadcastPayload{Operation: op, UserID: sender.UserID, ServerSeq: seq})
	out.Seq = seq
	out.UserID = sender.UserID
	h.broadcastToRoom(room.pictogramID, out, sender.ClientID)

	if op.Type == OpNodeRemove || op.Type == OpDocumentReplace {
		root, _ := room.state.Document()
		exists := func(id string) bool { return document.FindByID(root, id) != nil }
		if cleared := room.presence.ClearSelection(exists); len(cleared) > 0 {
			h.broadcastToRoom(room.pictogramID, room.presence.StateMessage(), "")
		}
	}
}

func (h *Hub) handleDocRequest(room *Room, sender *Client, msg *Message) {
	var req DocRequestPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			req.SinceSeq = -1
		}
	}

	ops, ok := room.state.OpsSince(req.SinceSeq)
	if !ok {
		sender.Send(docSyncMessage(room.state))
		return
	}
	for _, l := range ops {
		out := newMessage(TypeOpBroadcast, OperationBroadcastPayload{Operation: l.op, UserID: l.by, ServerSeq: l.seq})
		out.Seq = l.seq
		out.UserID = l.by
		sender.Send(out)
	}
}

func docSyncMessage(state *DocumentState) *Message {
	root, seq := state.Document()
	msg := newMessage(TypeDocSync, DocSyncPayload{Markup: document.ToMarkup(root), ServerSeq: seq})
	msg.Seq = seq
	return msg
}

// broadcastToRoom sends msg to every client in the room except
// excludeClientID. Sends never block, so the read lock is held throughout.
func (h *Hub) broadcastToRoom(pictogramID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[pictogramID]
	if !ok {
		return
	}
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}
