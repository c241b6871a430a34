package stream

import (
	json "github.com/goccy/go-json"
	"github.com/rxtech-lab/clearstreet-go/pkg/errors"
	"github.com/tidwall/gjson"
)

// ParseMessage decodes one text frame into its ActivityMessage variant.
//
// Only payload.type is read first; the whole frame is then decoded into the
// variant it names. Invalid JSON, a missing or unknown discriminator, and a
// frame that does not fit its variant are all ErrCodeParse errors.
func ParseMessage(frame []byte) (ActivityMessage, error) {
	if !gjson.ValidBytes(frame) {
		return nil, errors.New(errors.ErrCodeParse, "frame is not valid JSON")
	}

	discriminator := gjson.GetBytes(frame, "payload.type")
	if discriminator.Type != gjson.String {
		return nil, errors.New(errors.ErrCodeParse, "frame has no payload.type")
	}

	payloadType := PayloadType(discriminator.Str)

	switch payloadType {
	case PayloadTypeSubscribeActivityAck:
		return decodeAs[SubscribeAck](frame, payloadType)
	case PayloadTypeReplayComplete:
		return decodeAs[ReplayComplete](frame, payloadType)
	case PayloadTypeOrderUpdate:
		return decodeAs[OrderUpdate](frame, payloadType)
	case PayloadTypeTradeNotice:
		return decodeAs[TradeNotice](frame, payloadType)
	case PayloadTypePositionUpdate:
		return decodeAs[PositionUpdate](frame, payloadType)
	case PayloadTypeBuyingPowerUpdate:
		return decodeAs[BuyingPowerUpdate](frame, payloadType)
	case PayloadTypeLocateInventoryUpdate:
		return decodeAs[LocateInventoryUpdate](frame, payloadType)
	case PayloadTypeErrorNotice:
		return decodeAs[ErrorNotice](frame, payloadType)
	case PayloadTypeHeartbeat:
		return decodeAs[Heartbeat](frame, payloadType)
	default:
		return nil, errors.Newf(errors.ErrCodeParse, "unknown payload type %q", payloadType)
	}
}

func decodeAs[T ActivityMessage](frame []byte, payloadType PayloadType) (ActivityMessage, error) {
	var msg T
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeParse, err, "failed to decode %s frame", payloadType)
	}

	return msg, nil
}

func encodeSubscribeRequest(req SubscribeRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSerialization, "failed to encode subscribe request", err)
	}

	return data, nil
}
