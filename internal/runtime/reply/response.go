package reply

import (
	"fmt"
	"io"
	"math"
	"net/http"
)

// DefaultMaxResponseBytes bounds ReadResponse when no limit is given.
const DefaultMaxResponseBytes int64 = 4 << 20

// Response is a buffered sink reply. A nil Body means the reply carried no
// body at all; an empty non-nil Body means a zero-length body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HasBody reports whether the response carries at least one body byte.
func (r *Response) HasBody() bool {
	return r != nil && len(r.Body) > 0
}

// ReadResponse buffers and closes the body of resp. Bodies longer than max
// bytes are rejected; max <= 0 selects DefaultMaxResponseBytes.
func ReadResponse(resp *http.Response, max int64) (*Response, error) {
	if resp == nil {
		return nil, nil
	}
	if max <= 0 {
		max = DefaultMaxResponseBytes
	}
	// One byte past max is read to detect oversized bodies.
	if max == math.MaxInt64 {
		max--
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone()}
	if resp.Body == nil {
		return out, nil
	}
	defer resp.Body.Close()
	if resp.Body == http.NoBody {
		out.Body = []byte{}
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return nil, fmt.Errorf("read sink response: %w", err)
	}
	if int64(len(body)) > max {
		return nil, fmt.Errorf("read sink response: body exceeds %d bytes", max)
	}
	if body == nil {
		body = []byte{}
	}
	out.Body = body
	return out, nil
}
