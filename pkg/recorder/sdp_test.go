package recorder

import (
	"testing"

	"github.com/pion/sdp/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSDP = "v=0\r\n" +
	"o=- 123456 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 49170 UDP/TLS/RTP/SAVPF 111 0\r\n" +
	"c=IN IP4 127.0.0.1\r\n" +
	"a=rtpmap:111 opus/48000/2\r\n" +
	"a=fmtp:111 minptime=10;useinbandfec=1\r\n" +
	"a=rtpmap:0 PCMU/8000\r\n" +
	"a=extmap:1 urn:ietf:params:rtp-hdrext:ssrc-audio-level\r\n" +
	"a=extmap:3/sendonly urn:ietf:params:rtp-hdrext:sdes:mid\r\n"

func parseTestSDP(t *testing.T) *sdp.MediaDescription {
	t.Helper()
	var sd sdp.SessionDescription
	require.NoError(t, sd.Unmarshal([]byte(testSDP)))
	require.Len(t, sd.MediaDescriptions, 1)
	return sd.MediaDescriptions[0]
}

func TestOptionsFromMedia(t *testing.T) {
	md := parseTestSDP(t)

	opts, err := OptionsFromMedia(md, 111)
	require.NoError(t, err)
	assert.Equal(t, "opus", opts.Codec)
	assert.Equal(t, "minptime=10;useinbandfec=1", opts.Fmtp)
	assert.Equal(t, map[int]string{
		1: "urn:ietf:params:rtp-hdrext:ssrc-audio-level",
		3: "urn:ietf:params:rtp-hdrext:sdes:mid",
	}, opts.Extmaps)
}

func TestOptionsFromMediaOtherPayloadType(t *testing.T) {
	md := parseTestSDP(t)

	opts, err := OptionsFromMedia(md, 0)
	require.NoError(t, err)
	// Имя кодека нормализуется к нижнему регистру
	assert.Equal(t, "pcmu", opts.Codec)
	assert.Empty(t, opts.Fmtp)
}

func TestOptionsFromMediaMissingRtpmap(t *testing.T) {
	md := parseTestSDP(t)

	_, err := OptionsFromMedia(md, 96)
	assert.True(t, HasErrorCode(err, ErrorCodeInvalidArgument))

	_, err = OptionsFromMedia(nil, 111)
	assert.True(t, HasErrorCode(err, ErrorCodeInvalidArgument))
}

func TestNewFromSDP(t *testing.T) {
	dir := t.TempDir()
	md := parseTestSDP(t)

	rec, err := NewFromSDP(nil, dir, "call-audio", md, 111)
	require.NoError(t, err)
	defer rec.Destroy()

	assert.Equal(t, MediaTypeAudio, rec.Type())
	assert.Equal(t, "opus", rec.Codec())

	require.NoError(t, rec.SaveFrame(makeRTPFrame(t, 0x1, 1, 0, 100)))
	require.NoError(t, rec.Close())

	info, _ := parseRecording(t, rec.Path(), false)
	assert.Equal(t, "opus", info["c"])
	assert.Equal(t, "minptime=10;useinbandfec=1", info["f"])
	extmaps, ok := info["x"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, extmaps, 2)
}
