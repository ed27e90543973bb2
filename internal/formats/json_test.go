package formats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	backupAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env := NewEnvelope(
		[]EnvelopeProfile{{Name: "Personal", CreatedAt: "2024-01-01 00:00:00"}},
		[]Record{{Link: "https://a.com", Name: "A", ProfileName: "Personal", Tags: []string{"x"}, LastOpenedAt: "2024-05-01 00:00:00"}},
		backupAt,
	)

	data, err := EncodeEnvelope(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"backupDate": "2024-06-01 12:00:00"`)
	assert.Contains(t, string(data), `"appVersionCode": 1`)

	decoded, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env, decoded)
	assert.Equal(t, "x", decoded.Records()[0].Tags[0])
}

func TestDecodeEnvelopeRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version": 99, "profiles": [], "links": []}`))
	assert.ErrorIs(t, err, ErrUnsupportedEnvelope)

	_, err = DecodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestJSONCodecDerivesProfiles(t *testing.T) {
	data, err := JSONCodec{}.Encode([]Record{
		{Link: "https://a.com", ProfileName: "Work"},
		{Link: "https://b.com", ProfileName: "Work"},
		{Link: "https://c.com", ProfileName: "Home"},
	})
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	require.Len(t, env.Profiles, 2)
	assert.Equal(t, "Work", env.Profiles[0].Name)
	assert.Equal(t, "Home", env.Profiles[1].Name)

	decoded, err := JSONCodec{}.Decode(data)
	require.NoError(t, err)
	assert.Len(t, decoded.Records, 3)
}
