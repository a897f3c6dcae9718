package alpacastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAuthenticate(t *testing.T) {
	frame, err := EncodeAuthenticate(Credentials{KeyID: "PKTEST", SecretKey: "s3cr\"et"})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"authenticate","data":{"key_id":"PKTEST","secret_key":"s3cr\"et"}}`, string(frame))
}

func TestEncodeListen(t *testing.T) {
	frame, err := EncodeListen([]string{MinuteBars("SPY"), MinuteBars("AAPL")})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"listen","data":{"streams":["AM.SPY","AM.AAPL"]}}`, string(frame))
}

func TestMachineCopiesStreams(t *testing.T) {
	streams := []string{"AM.SPY"}
	m, err := NewMachine(testCreds, streams)
	require.NoError(t, err)
	streams[0] = "AM.XXX"

	driveTo(t, m, Authenticated)
	frame, ok := m.OnWritable()
	require.True(t, ok)
	assert.Contains(t, string(frame), "AM.SPY")
}
