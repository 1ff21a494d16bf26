package reply

import (
	"errors"

	ce "github.com/drblury/replyflow/internal/runtime/cloudevents"
)

var errNoResponse = errors.New("no response")

// Decoder extracts a CloudEvent from a sink response.
type Decoder interface {
	Decode(resp *Response) (*ce.Event, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(resp *Response) (*ce.Event, error)

func (f DecoderFunc) Decode(resp *Response) (*ce.Event, error) {
	return f(resp)
}

// HTTPDecoder decodes binary and structured mode CloudEvents.
type HTTPDecoder struct{}

func (HTTPDecoder) Decode(resp *Response) (*ce.Event, error) {
	if resp == nil {
		return nil, errNoResponse
	}
	return ce.DecodeHTTP(resp.Header, resp.Body)
}
