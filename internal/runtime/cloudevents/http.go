package cloudevents

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const httpHeaderPrefix = "ce-"

// DecodeHTTP decodes an HTTP message into an Event. The content type selects
// structured mode; otherwise a Ce-Specversion header selects binary mode.
// Anything else fails with ErrUnknownEncoding. A binary event without a body
// is valid.
func DecodeHTTP(header http.Header, body []byte) (*Event, error) {
	var (
		evt *Event
		err error
	)
	switch mt := mediaType(header.Get("Content-Type")); {
	case mt == ContentTypeStructured:
		evt, err = decodeStructured(body)
	case mt == ContentTypeBatch:
		return nil, ErrBatchUnsupported
	case header.Get("Ce-Specversion") != "":
		evt, err = decodeBinaryHTTP(header, body)
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

func decodeBinaryHTTP(header http.Header, body []byte) (*Event, error) {
	evt := &Event{}
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		name := strings.ToLower(key)
		if !strings.HasPrefix(name, httpHeaderPrefix) {
			continue
		}
		value := values[0]
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		if err := evt.setAttribute(strings.TrimPrefix(name, httpHeaderPrefix), value); err != nil {
			return nil, fmt.Errorf("cloudevents: %w", err)
		}
	}
	if ct := header.Get("Content-Type"); ct != "" {
		evt.DataContentType = stringPtr(ct)
	}
	if len(body) > 0 {
		evt.Data = append([]byte(nil), body...)
	}
	return evt, nil
}

// WriteHTTPHeaders writes the event attributes as binary mode HTTP headers.
// The caller sends evt.Data as the request body.
func WriteHTTPHeaders(evt *Event, header http.Header) {
	for name, value := range evt.attributes() {
		header.Set(httpHeaderPrefix+name, value)
	}
	if ct := evt.ContentType(); ct != "" {
		header.Set("Content-Type", ct)
	}
}
