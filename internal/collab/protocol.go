package collab

import (
	"encoding/json"
	"time"

	"github.com/mla/mla/chart-go/internal/chart"
)

type Message struct {
	Type     string          `json:"type"`
	ChartID  string          `json:"chartId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	Date        string     `json:"date,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

// CursorPos is in graph space so collaborators with different cameras
// agree on it.
type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// DocSyncPayload carries the whole chart to a client that just joined.
type DocSyncPayload struct {
	File      chart.SaveFile `json:"file"`
	ServerSeq int64          `json:"serverSeq"`
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

	// Connection
	TypeWelcome = "welcome"

	// Chart sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// Operation types
const (
	OpEntityPut     = "entity.put"
	OpLinkPut       = "link.put"
	OpEntitiesMove  = "entities.move"
	OpVersionSplit  = "version.split"
	OpVersionRemove = "version.remove"
	OpObjectRemove  = "object.remove"
	OpShapePut      = "shape.put"
	OpShapesDelete  = "shapes.delete"
	OpContextMerge  = "context.merge"
)

// --- Operation Types ---

// Operation is one chart mutation submitted by a client. Which fields are
// read depends on Type.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For entity.put / link.put
	Entity *chart.Entity `json:"entity,omitempty"`
	Link   *chart.Link   `json:"link,omitempty"`

	// For entities.move and version.split
	Date  *time.Time `json:"date,omitempty"`
	Moves []Move     `json:"moves,omitempty"`

	// For version.split, version.remove and object.remove
	Key    *chart.Key `json:"key,omitempty"`
	GID    int64      `json:"gid,omitempty"`
	IsLink bool       `json:"isLink,omitempty"`

	// For shape.put / shapes.delete
	Shape    *chart.Shape `json:"shape,omitempty"`
	ShapeIDs []string     `json:"shapeIds,omitempty"`

	// For context.merge
	Context string `json:"context,omitempty"`
}

// Move is a committed drag of one entity.
type Move struct {
	ID     string  `json:"id"`
	TypeID string  `json:"typeId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

func newMessage(typ string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
