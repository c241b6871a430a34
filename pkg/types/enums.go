package types

// OrderState is the coarse lifecycle state of an order.
type OrderState string

const (
	OrderStateOpen     OrderState = "open"
	OrderStateRejected OrderState = "rejected"
	OrderStateClosed   OrderState = "closed"
)

// OrderStatus is the fine-grained execution status of an order.
type OrderStatus string

const (
	OrderStatusNew                OrderStatus = "new"
	OrderStatusPartiallyFilled    OrderStatus = "partially-filled"
	OrderStatusFilled             OrderStatus = "filled"
	OrderStatusCanceled           OrderStatus = "canceled"
	OrderStatusReplaced           OrderStatus = "replaced"
	OrderStatusPendingCancel      OrderStatus = "pending-cancel"
	OrderStatusStopped            OrderStatus = "stopped"
	OrderStatusRejected           OrderStatus = "rejected"
	OrderStatusSuspended          OrderStatus = "suspended"
	OrderStatusPendingNew         OrderStatus = "pending-new"
	OrderStatusCalculated         OrderStatus = "calculated"
	OrderStatusExpired            OrderStatus = "expired"
	OrderStatusAcceptedForBidding OrderStatus = "accepted-for-bidding"
	OrderStatusPendingReplace     OrderStatus = "pending-replace"
	OrderStatusDoneForDay         OrderStatus = "done-for-day"
)

// IsTerminal reports whether no further fills can happen.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired, OrderStatusDoneForDay:
		return true
	default:
		return false
	}
}

type OrderType string

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop-limit"
)

type Side string

const (
	SideBuy       Side = "buy"
	SideSell      Side = "sell"
	SideSellShort Side = "sell-short"
)

type TimeInForce string

const (
	TimeInForceDay               TimeInForce = "day"
	TimeInForceImmediateOrCancel TimeInForce = "ioc"
	TimeInForceDayPlus           TimeInForce = "day-plus"
	TimeInForceAtOpen            TimeInForce = "at-open"
	TimeInForceAtClose           TimeInForce = "at-close"
)

// SymbolFormat selects how Symbol is interpreted.
type SymbolFormat string

const (
	SymbolFormatCMS SymbolFormat = "cms"
	SymbolFormatOSI SymbolFormat = "osi"
)

// Urgency tunes how aggressively the smart order router works an order.
type Urgency string

const (
	UrgencySuperPassive    Urgency = "super-passive"
	UrgencyPassive         Urgency = "passive"
	UrgencyModerate        Urgency = "moderate"
	UrgencyAggressive      Urgency = "aggressive"
	UrgencySuperAggressive Urgency = "super-aggressive"
)

// Destination is a venue for direct market access orders.
type Destination string

const (
	DestinationArcx Destination = "arcx" // NYSE Arca
	DestinationBats Destination = "bats"
	DestinationBaty Destination = "baty"
	DestinationEdga Destination = "edga"
	DestinationEdgx Destination = "edgx"
	DestinationEprl Destination = "eprl" // MIAX Pearl
	DestinationIexg Destination = "iexg"
	DestinationMemx Destination = "memx"
	DestinationXase Destination = "xase" // NYSE American
	DestinationXbos Destination = "xbos" // Nasdaq BX
	DestinationXcis Destination = "xcis" // NYSE National
	DestinationXnms Destination = "xnms" // Nasdaq Global Market
	DestinationXnys Destination = "xnys"
)
