package cloudevents

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/oklog/ulid/v2"
)

const (
	// kafkaHeaderPrefix prefixes attribute headers in Kafka binary mode.
	kafkaHeaderPrefix = "ce_"

	// MetadataContentType carries datacontenttype in Kafka binary mode.
	MetadataContentType = "content-type"
)

// NewMessageUUID returns a time-sortable identifier for broker messages.
func NewMessageUUID() string {
	return ulid.Make().String()
}

// ToMessage encodes the event as a Kafka binary mode Watermill message. The
// payload is the event data and every attribute becomes a ce_ header.
func ToMessage(evt *Event) (*message.Message, error) {
	if evt == nil {
		return nil, fmt.Errorf("%w: event is nil", ErrInvalidEvent)
	}
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	msg := message.NewMessage(NewMessageUUID(), evt.Data)
	for name, value := range evt.attributes() {
		msg.Metadata.Set(kafkaHeaderPrefix+name, value)
	}
	if ct := evt.ContentType(); ct != "" {
		msg.Metadata.Set(MetadataContentType, ct)
	}
	return msg, nil
}

// FromMessage decodes a Watermill message carrying a CloudEvent in Kafka
// binary or structured mode.
func FromMessage(msg *message.Message) (*Event, error) {
	if msg == nil {
		return nil, ErrUnknownEncoding
	}

	var (
		evt *Event
		err error
	)
	switch mt := mediaType(msg.Metadata.Get(MetadataContentType)); {
	case msg.Metadata.Get(kafkaHeaderPrefix+AttrSpecVersion) != "":
		evt, err = decodeBinaryMessage(msg)
	case mt == ContentTypeStructured:
		evt, err = decodeStructured(msg.Payload)
	case mt == ContentTypeBatch:
		return nil, ErrBatchUnsupported
	default:
		return nil, ErrUnknownEncoding
	}
	if err != nil {
		return nil, err
	}
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return evt, nil
}

func decodeBinaryMessage(msg *message.Message) (*Event, error) {
	evt := &Event{}
	for key, value := range msg.Metadata {
		name := strings.ToLower(key)
		if !strings.HasPrefix(name, kafkaHeaderPrefix) {
			continue
		}
		if err := evt.setAttribute(strings.TrimPrefix(name, kafkaHeaderPrefix), value); err != nil {
			return nil, fmt.Errorf("cloudevents: %w", err)
		}
	}
	if ct := msg.Metadata.Get(MetadataContentType); ct != "" {
		evt.DataContentType = stringPtr(ct)
	}
	if len(msg.Payload) > 0 {
		evt.Data = append([]byte(nil), msg.Payload...)
	}
	return evt, nil
}
