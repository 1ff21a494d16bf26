package cloudevents

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

const (
	// ContentTypeStructured marks a structured mode JSON CloudEvent.
	ContentTypeStructured = "application/cloudevents+json"

	// ContentTypeBatch marks a batch of structured mode JSON CloudEvents.
	ContentTypeBatch = "application/cloudevents-batch+json"

	memberData       = "data"
	memberDataBase64 = "data_base64"
)

var jsonAPI = sonic.ConfigStd

// decodeStructured parses a structured mode JSON CloudEvent.
func decodeStructured(body []byte) (*Event, error) {
	var members map[string]json.RawMessage
	if err := jsonAPI.Unmarshal(body, &members); err != nil {
		return nil, fmt.Errorf("cloudevents: decoding structured event: %w", err)
	}
	if members == nil {
		return nil, fmt.Errorf("cloudevents: structured event must be a JSON object")
	}

	evt := &Event{}
	for name, raw := range members {
		if name == memberData || name == memberDataBase64 || isJSONNull(raw) {
			continue
		}
		value, err := memberString(raw)
		if err != nil {
			return nil, fmt.Errorf("cloudevents: attribute %q: %w", name, err)
		}
		if err := evt.setAttribute(name, value); err != nil {
			return nil, fmt.Errorf("cloudevents: %w", err)
		}
	}

	if raw, ok := members[memberDataBase64]; ok && !isJSONNull(raw) {
		var encoded string
		if err := jsonAPI.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("cloudevents: data_base64 must be a string: %w", err)
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("cloudevents: decoding data_base64: %w", err)
		}
		evt.Data = data
		return evt, nil
	}

	if raw, ok := members[memberData]; ok && !isJSONNull(raw) {
		if evt.DataContentType == nil {
			evt.DataContentType = stringPtr("application/json")
		}
		if isJSONMediaType(mediaType(*evt.DataContentType)) {
			evt.Data = append([]byte(nil), raw...)
			return evt, nil
		}
		// Non-JSON content carried as a JSON string is unwrapped.
		var text string
		if err := jsonAPI.Unmarshal(raw, &text); err == nil {
			evt.Data = []byte(text)
		} else {
			evt.Data = append([]byte(nil), raw...)
		}
	}
	return evt, nil
}

// memberString renders an attribute member in string form. Strings are
// unquoted; numbers and booleans keep their JSON text.
func memberString(raw json.RawMessage) (string, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := jsonAPI.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return "", fmt.Errorf("objects and arrays are not valid attribute values")
	}
	return string(raw), nil
}

func isJSONNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}
