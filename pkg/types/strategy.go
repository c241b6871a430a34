package types

import (
	"encoding/json"
	"fmt"

	"github.com/moznion/go-optional"
)

type StrategyType string

const (
	// StrategyTypeSmartOrderRoute lets the broker route the order.
	StrategyTypeSmartOrderRoute StrategyType = "sor"
	// StrategyTypeDirectMarketAccess sends the order to a fixed destination.
	StrategyTypeDirectMarketAccess StrategyType = "dma"
)

// Strategy is the routing instruction attached to an order.
// Smart order routes may carry a time window and an urgency; direct market
// access requires a destination. Fields that do not apply to Type are
// dropped when encoding.
type Strategy struct {
	Type        StrategyType                  `json:"type"`
	StartAt     optional.Option[int64]        `json:"start_at,omitempty"`
	EndAt       optional.Option[int64]        `json:"end_at,omitempty"`
	Urgency     optional.Option[Urgency]      `json:"urgency,omitempty"`
	Destination optional.Option[Destination] `json:"destination,omitempty"`
}

// SmartOrderRoute builds an "sor" strategy with no window and default urgency.
func SmartOrderRoute() Strategy {
	return Strategy{
		Type:        StrategyTypeSmartOrderRoute,
		StartAt:     optional.None[int64](),
		EndAt:       optional.None[int64](),
		Urgency:     optional.None[Urgency](),
		Destination: optional.None[Destination](),
	}
}

// WithUrgency returns a copy of a smart order route with the urgency set.
func (s Strategy) WithUrgency(urgency Urgency) Strategy {
	s.Urgency = optional.Some(urgency)
	return s
}

// WithWindow returns a copy of a smart order route working between the given epoch milliseconds.
func (s Strategy) WithWindow(startAt, endAt int64) Strategy {
	s.StartAt = optional.Some(startAt)
	s.EndAt = optional.Some(endAt)
	return s
}

// DirectMarketAccess builds a "dma" strategy for the destination.
func DirectMarketAccess(destination Destination) Strategy {
	return Strategy{
		Type:        StrategyTypeDirectMarketAccess,
		StartAt:     optional.None[int64](),
		EndAt:       optional.None[int64](),
		Urgency:     optional.None[Urgency](),
		Destination: optional.Some(destination),
	}
}

// strategyWire has no methods so encoding it does not recurse into Strategy's.
type strategyWire Strategy

// MarshalJSON implements json.Marshaler.
func (s Strategy) MarshalJSON() ([]byte, error) {
	wire := strategyWire(s)

	switch s.Type {
	case StrategyTypeSmartOrderRoute:
		wire.Destination = optional.None[Destination]()
	case StrategyTypeDirectMarketAccess:
		if s.Destination.IsNone() {
			return nil, fmt.Errorf("dma strategy requires a destination")
		}
		wire.StartAt = optional.None[int64]()
		wire.EndAt = optional.None[int64]()
		wire.Urgency = optional.None[Urgency]()
	default:
		return nil, fmt.Errorf("unsupported strategy type: %q", s.Type)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Strategy) UnmarshalJSON(data []byte) error {
	var wire strategyWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case StrategyTypeSmartOrderRoute:
		wire.Destination = optional.None[Destination]()
	case StrategyTypeDirectMarketAccess:
		if wire.Destination.IsNone() {
			return fmt.Errorf("dma strategy is missing field destination")
		}
	case "":
		return fmt.Errorf("strategy is missing field type")
	default:
		return fmt.Errorf("unsupported strategy type: %q", wire.Type)
	}

	*s = Strategy(wire)

	return nil
}
