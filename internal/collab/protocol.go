package collab

import (
	"encoding/json"

	"github.com/pictoforge/pictoforge/backend-go/internal/document"
)

type Message struct {
	Type        string          `json:"type"`
	PictogramID string          `json:"pictogramId,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	UserID      string          `json:"userId,omitempty"`
	Seq         int64           `json:"seq,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// PresencePayload is one participant's pointer and selection. Cursor is in
// svg user units, so every client can place it regardless of its own
// pan and zoom.
type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	SelectedID  string     `json:"selectedId,omitempty"`
	Tool        string     `json:"tool,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// DocSyncPayload carries the whole document as canonical markup.
type DocSyncPayload struct {
	Markup    string `json:"markup"`
	ServerSeq int64  `json:"serverSeq"`
}

// DocRequestPayload asks for everything after SinceSeq. The server answers
// with the missed operations when its log still holds them and with a
// full doc.sync otherwise.
type DocRequestPayload struct {
	SinceSeq int64 `json:"sinceSeq"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	TypeWelcome = "welcome"

	TypeDocSync    = "doc.sync"
	TypeDocRequest = "doc.request"

	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

const (
	OpNodeUpdate      = "node.update"
	OpNodeInsert      = "node.insert"
	OpNodeRemove      = "node.remove"
	OpNodeMove        = "node.move"
	OpDocumentReplace = "document.replace"
)

// Operation is one edit to a room's document.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	NodeID    string `json:"nodeId,omitempty"`

	// node.update: a null value removes the attribute.
	Attrs map[string]*string `json:"attrs,omitempty"`
	Text  *string            `json:"text,omitempty"`

	// node.insert and node.move
	Node     *document.Node `json:"node,omitempty"`
	ParentID string         `json:"parentId,omitempty"`
	Index    *int           `json:"index,omitempty"`

	// document.replace
	Markup string `json:"markup,omitempty"`
}

type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
