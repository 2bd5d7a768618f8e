package gateway

import (
	"encoding/json"
	"time"

	"github.com/victorivanov/mship/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpIdentify     = 2
	OpSubscribe    = 3
	OpUnsubscribe  = 4
	OpResume       = 6
	OpReconnect    = 7
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady           = "READY"
	EventResumed         = "RESUMED"
	EventSubscribed      = "SUBSCRIBED"
	EventSubscribeDenied = "SUBSCRIBE_DENIED"
	EventBanRepeal       = "BAN_REPEAL"
	EventBanUpdate       = "BAN_UPDATE"
	EventBanNoteAdd      = "BAN_NOTE_ADD"
)

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// SubscribeData is sent by the client in Op 3 SUBSCRIBE and Op 4 UNSUBSCRIBE.
type SubscribeData struct {
	AccountID int64 `json:"account_id,string"`
}

// ResumeData is sent by the client in an Op 6 RESUME. Accounts lists the
// account pages the client was watching.
type ResumeData struct {
	Token     string   `json:"token"`
	SessionID string   `json:"session_id"`
	Sequence  int64    `json:"seq"`
	Accounts  []string `json:"accounts"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID string `json:"session_id"`
	AccountID int64  `json:"account_id,string"`
}

// SubscriptionData acknowledges or refuses a SUBSCRIBE.
type SubscriptionData struct {
	AccountID int64 `json:"account_id,string"`
}

// Event is a dispatch event ready to broadcast.
type Event struct {
	Name string
	Data any
}

// BanEventData is the payload of BAN_REPEAL, BAN_UPDATE and BAN_NOTE_ADD.
type BanEventData struct {
	BanID        int64        `json:"ban_id,string"`
	AccountID    int64        `json:"account_id,string"`
	ActorID      int64        `json:"actor_id,string"`
	RepealedAt   *time.Time   `json:"repealed_at,omitempty"`
	PeriodFinish *time.Time   `json:"period_finish,omitempty"`
	Note         *models.Note `json:"note,omitempty"`
}
