package stream

import (
	"github.com/rxtech-lab/clearstreet-go/pkg/types"
	"github.com/shopspring/decimal"
)

// PayloadType is the discriminator found at payload.type in every frame.
type PayloadType string

const (
	PayloadTypeSubscribeActivity     PayloadType = "subscribe-activity"
	PayloadTypeSubscribeActivityAck  PayloadType = "subscribe-activity-ack"
	PayloadTypeReplayComplete        PayloadType = "replay-complete"
	PayloadTypeOrderUpdate           PayloadType = "order-update"
	PayloadTypeTradeNotice           PayloadType = "trade-notice"
	PayloadTypePositionUpdate        PayloadType = "position-update"
	PayloadTypeBuyingPowerUpdate     PayloadType = "buying-power-update"
	PayloadTypeLocateInventoryUpdate PayloadType = "locate-inventory-update"
	PayloadTypeErrorNotice           PayloadType = "error-notice"
	PayloadTypeHeartbeat             PayloadType = "heartbeat"
)

// ActivityMessage is one decoded inbound frame. The set of implementations is closed:
// SubscribeAck, ReplayComplete, OrderUpdate, TradeNotice, PositionUpdate,
// BuyingPowerUpdate, LocateInventoryUpdate, ErrorNotice and Heartbeat.
//
//	switch msg := msg.(type) {
//	case stream.OrderUpdate:
//		...
//	case stream.Heartbeat:
//		...
//	}
type ActivityMessage interface {
	// PayloadType returns the discriminator of the frame.
	PayloadType() PayloadType
	// EventTimestamp returns the server timestamp of the frame.
	EventTimestamp() int64
	// EventSequence returns the sequence number and true for sequenced variants.
	// Sequences only grow within one session; a new handshake starts over.
	EventSequence() (int64, bool)

	isActivityMessage()
}

// Header carries the fields shared by unsequenced frames.
type Header struct {
	Timestamp int64 `json:"timestamp"`
}

func (h Header) EventTimestamp() int64        { return h.Timestamp }
func (h Header) EventSequence() (int64, bool) { return 0, false }

// SequencedHeader carries the fields shared by sequenced frames.
type SequencedHeader struct {
	Timestamp int64 `json:"timestamp"`
	Sequence  int64 `json:"sequence"`
}

func (h SequencedHeader) EventTimestamp() int64        { return h.Timestamp }
func (h SequencedHeader) EventSequence() (int64, bool) { return h.Sequence, true }

// TypeOnlyPayload is the payload of frames that carry nothing but their type.
type TypeOnlyPayload struct {
	Type PayloadType `json:"type"`
}

type SubscribeAckPayload struct {
	Type      PayloadType `json:"type"`
	AccountID string      `json:"account_id"`
	Success   bool        `json:"success"`
	Details   string      `json:"details"`
}

// SubscribeAck answers the subscribe request. It usually arrives first but is not awaited.
type SubscribeAck struct {
	Header
	Payload SubscribeAckPayload `json:"payload"`
}

// ReplayComplete marks the end of the replay of state that existed before the subscription.
type ReplayComplete struct {
	Header
	Payload TypeOnlyPayload `json:"payload"`
}

type Heartbeat struct {
	Header
	Payload TypeOnlyPayload `json:"payload"`
}

type OrderUpdatePayload struct {
	Type PayloadType `json:"type"`
	Data types.Order `json:"data"`
}

type OrderUpdate struct {
	SequencedHeader
	Payload OrderUpdatePayload `json:"payload"`
}

type TradeNoticePayload struct {
	Type PayloadType `json:"type"`
	Data types.Trade `json:"data"`
}

type TradeNotice struct {
	SequencedHeader
	Payload TradeNoticePayload `json:"payload"`
}

type PositionUpdatePayload struct {
	Type PayloadType    `json:"type"`
	Data types.Position `json:"data"`
}

type PositionUpdate struct {
	SequencedHeader
	Payload PositionUpdatePayload `json:"payload"`
}

type BuyingPowerUpdatePayload struct {
	Type        PayloadType     `json:"type"`
	AccountID   string          `json:"account_id"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}

type BuyingPowerUpdate struct {
	SequencedHeader
	Payload BuyingPowerUpdatePayload `json:"payload"`
}

type LocateInventoryUpdatePayload struct {
	Type      PayloadType     `json:"type"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type LocateInventoryUpdate struct {
	SequencedHeader
	Payload LocateInventoryUpdatePayload `json:"payload"`
}

type ErrorNoticePayload struct {
	Type    PayloadType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

// ErrorNotice is a server-side error reported in band. It does not end the session.
type ErrorNotice struct {
	SequencedHeader
	Payload ErrorNoticePayload `json:"payload"`
}

func (SubscribeAck) PayloadType() PayloadType          { return PayloadTypeSubscribeActivityAck }
func (ReplayComplete) PayloadType() PayloadType        { return PayloadTypeReplayComplete }
func (Heartbeat) PayloadType() PayloadType             { return PayloadTypeHeartbeat }
func (OrderUpdate) PayloadType() PayloadType           { return PayloadTypeOrderUpdate }
func (TradeNotice) PayloadType() PayloadType           { return PayloadTypeTradeNotice }
func (PositionUpdate) PayloadType() PayloadType        { return PayloadTypePositionUpdate }
func (BuyingPowerUpdate) PayloadType() PayloadType     { return PayloadTypeBuyingPowerUpdate }
func (LocateInventoryUpdate) PayloadType() PayloadType { return PayloadTypeLocateInventoryUpdate }
func (ErrorNotice) PayloadType() PayloadType           { return PayloadTypeErrorNotice }

func (SubscribeAck) isActivityMessage()          {}
func (ReplayComplete) isActivityMessage()        {}
func (Heartbeat) isActivityMessage()             {}
func (OrderUpdate) isActivityMessage()           {}
func (TradeNotice) isActivityMessage()           {}
func (PositionUpdate) isActivityMessage()        {}
func (BuyingPowerUpdate) isActivityMessage()     {}
func (LocateInventoryUpdate) isActivityMessage() {}
func (ErrorNotice) isActivityMessage()           {}

var (
	_ ActivityMessage = SubscribeAck{}
	_ ActivityMessage = ReplayComplete{}
	_ ActivityMessage = Heartbeat{}
	_ ActivityMessage = OrderUpdate{}
	_ ActivityMessage = TradeNotice{}
	_ ActivityMessage = PositionUpdate{}
	_ ActivityMessage = BuyingPowerUpdate{}
	_ ActivityMessage = LocateInventoryUpdate{}
	_ ActivityMessage = ErrorNotice{}
)

// SubscribeRequest is the single frame the client sends after connecting.
type SubscribeRequest struct {
	Authorization string                  `json:"authorization"`
	Payload       SubscribeRequestPayload `json:"payload"`
}

type SubscribeRequestPayload struct {
	Type      PayloadType `json:"type"`
	AccountID string      `json:"account_id"`
}

// NewSubscribeRequest builds the activity subscription for an account.
func NewSubscribeRequest(token, accountID string) SubscribeRequest {
	return SubscribeRequest{
		Authorization: token,
		Payload: SubscribeRequestPayload{
			Type:      PayloadTypeSubscribeActivity,
			AccountID: accountID,
		},
	}
}
