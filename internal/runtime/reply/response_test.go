package reply

import (
	"io"
	"math"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadResponse(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Ce-Id": []string{"abc"}},
		Body:       io.NopCloser(strings.NewReader("payload")),
	}

	out, err := ReadResponse(resp, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, "abc", out.Header.Get("Ce-Id"))
	assert.Equal(t, []byte("payload"), out.Body)
	assert.True(t, out.HasBody())
}

func TestReadResponseEmptyBody(t *testing.T) {
	out, err := ReadResponse(&http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody}, 10)
	require.NoError(t, err)
	assert.NotNil(t, out.Body)
	assert.Empty(t, out.Body)
	assert.False(t, out.HasBody())

	out, err = ReadResponse(&http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(""))}, 10)
	require.NoError(t, err)
	assert.NotNil(t, out.Body)
	assert.Empty(t, out.Body)

	out, err = ReadResponse(&http.Response{StatusCode: http.StatusOK}, 10)
	require.NoError(t, err)
	assert.Nil(t, out.Body)

	out, err = ReadResponse(nil, 10)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, out.HasBody())
}

func TestReadResponseLimit(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("0123456789"))}
	_, err := ReadResponse(resp, 4)
	assert.ErrorContains(t, err, "exceeds 4 bytes")

	resp = &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("0123"))}
	out, err := ReadResponse(resp, 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(out.Body))
}

func TestReadResponseMaxInt64Limit(t *testing.T) {
	body := `{"specversion":"1.0","id":"r-1","source":"/sink","type":"order.confirmed"}`
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/cloudevents+json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	out, err := ReadResponse(resp, math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, body, string(out.Body))

	evt, err := HTTPDecoder{}.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "r-1", evt.ID)
}
