package transport

import (
	"strconv"
	"strings"
	"testing"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRequestRoundTrip(t *testing.T) {
	codec := Codec{}
	req := &Request{
		Method:    MethodPut,
		Path:      "15001/65568",
		Payload:   []byte(`{"3311":[{"5850":1}]}`),
		MessageID: 4711,
		Token:     NewToken(),
	}

	b, err := codec.Encode(req)
	require.NoError(t, err)

	got, err := codec.DecodeRequest(b)
	require.NoError(t, err)
	assert.Equal(t, MethodPut, got.Method)
	assert.Equal(t, "15001/65568", got.Path)
	assert.Equal(t, req.Payload, got.Payload)
	assert.Equal(t, uint16(4711), got.MessageID)
	assert.Equal(t, req.Token, got.Token)
	assert.False(t, got.Observe)
}

func TestCodecObserveOption(t *testing.T) {
	codec := Codec{}
	b, err := codec.Encode(&Request{Method: MethodGet, Path: "/15001/65537/", Observe: true, Token: NewToken()})
	require.NoError(t, err)

	got, err := codec.DecodeRequest(b)
	require.NoError(t, err)
	assert.True(t, got.Observe)
	assert.Equal(t, "15001/65537", got.Path)
	assert.Empty(t, got.Payload)
}

func TestCodecResponse(t *testing.T) {
	codec := Codec{}
	req := &Request{Method: MethodGet, Path: "15001", MessageID: 9, Token: NewToken()}

	b, err := codec.EncodeResponse(req, codes.Content, []byte(`[65537,65568]`))
	require.NoError(t, err)

	resp, err := codec.Decode(b)
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.Equal(t, codes.Content, resp.Code)
	assert.Equal(t, message.Acknowledgement, resp.Type)
	assert.Equal(t, uint16(9), resp.MessageID)
	assert.Equal(t, `[65537,65568]`, string(resp.Payload))
}

func TestCodecResponseKeepsOptions(t *testing.T) {
	codec := Codec{}
	req := &Request{Method: MethodGet, Path: "15001/65537", MessageID: 10, Token: NewToken()}

	b, err := codec.EncodeResponse(req, codes.Content, []byte(`{"5750":0}`))
	require.NoError(t, err)

	resp, err := codec.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, codes.Content, resp.Code)
	assert.Equal(t, req.Token, resp.Token)
	assert.Equal(t, `{"5750":0}`, string(resp.Payload))
}

func TestCodecDecodeManyOptions(t *testing.T) {
	codec := Codec{}
	segs := make([]string, 40)
	for i := range segs {
		segs[i] = strconv.Itoa(i)
	}
	path := strings.Join(segs, "/")

	b, err := codec.Encode(&Request{Method: MethodPut, Path: path, Payload: []byte(`{}`), Token: NewToken()})
	require.NoError(t, err)

	got, err := codec.DecodeRequest(b)
	require.NoError(t, err)
	assert.Equal(t, path, got.Path)
	assert.Equal(t, `{}`, string(got.Payload))
}

func TestCodecAck(t *testing.T) {
	codec := Codec{}
	b, err := codec.EncodeAck(77)
	require.NoError(t, err)

	resp, err := codec.Decode(b)
	require.NoError(t, err)
	assert.True(t, resp.isEmptyAck())
	assert.Equal(t, uint16(77), resp.MessageID)
}

func TestCodecDecodeGarbage(t *testing.T) {
	_, err := Codec{}.Decode([]byte{0xff})
	assert.Error(t, err)
}

func TestResponseSuccess(t *testing.T) {
	assert.True(t, (&Response{Code: codes.Changed}).Success())
	assert.True(t, (&Response{Code: codes.Created}).Success())
	assert.False(t, (&Response{Code: codes.NotFound}).Success())
	assert.False(t, (&Response{Code: codes.InternalServerError}).Success())
}

func TestNewTokenIsUnique(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.Len(t, a, 8)
	assert.NotEqual(t, a, b)
}

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "192.168.1.10:5684", WithDefaultPort("192.168.1.10"))
	assert.Equal(t, "192.168.1.10:1234", WithDefaultPort("192.168.1.10:1234"))
	assert.Equal(t, "[fe80::1]:5684", WithDefaultPort("fe80::1"))
	assert.Equal(t, "gw.local:5684", WithDefaultPort("gw.local"))
}
