package speakers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeakerPreservesUnknownKeys(t *testing.T) {
	input := `{"id":"speaker1","uniqueId":"abc","name":"Ann","internal":true,"external":false,"favouriteColour":"green","meta":{"source":"import"}}`

	var s Speaker
	require.NoError(t, json.Unmarshal([]byte(input), &s))

	assert.Equal(t, "speaker1", s.ID)
	assert.Equal(t, "Ann", s.Name)
	assert.True(t, s.Internal)
	require.Len(t, s.Extra, 2)
	assert.JSONEq(t, `"green"`, string(s.Extra["favouriteColour"]))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
}

func TestSpeakerWithoutExtraMarshalsKnownFields(t *testing.T) {
	s := Speaker{ID: "speaker2", Name: "Bob", Languages: map[string]bool{"Dutch": true}}

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"speaker2","name":"Bob","languages":{"Dutch":true},"internal":false,"external":false}`, string(out))
}

func TestSpeakerCopyIsDeep(t *testing.T) {
	s := &Speaker{
		ID:        "speaker1",
		Languages: map[string]bool{"English": true},
		Extra:     map[string]json.RawMessage{"x": json.RawMessage(`1`)},
	}
	c := s.Copy()
	c.Languages["English"] = false
	c.Extra["x"][0] = '2'

	assert.True(t, s.Languages["English"])
	assert.Equal(t, "1", string(s.Extra["x"]))
	assert.Nil(t, (*Speaker)(nil).Copy())
}

func TestSpeaks(t *testing.T) {
	s := Speaker{Languages: map[string]bool{"Dutch": true, "French": false}}
	assert.True(t, s.Speaks("Dutch"))
	assert.False(t, s.Speaks("French"))
	assert.False(t, s.Speaks("German"))
}

func TestTouch(t *testing.T) {
	now := utc.Time{Time: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)}
	s := Speaker{}
	s.Touch(now)
	assert.Equal(t, "2025-03-01T12:30:00Z", s.LastModified)
}

func TestCodecRoundTrip(t *testing.T) {
	records := []Speaker{
		{ID: "speaker1", UniqueID: "a", Name: "Ann", Topics: "AI, Data"},
		{ID: "speaker2", UniqueID: "b", Name: "Bob & Co"},
	}

	data, err := Encode(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {")
	assert.Contains(t, string(data), "Bob & Co")

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, records, decoded)

	_, err = Decode([]byte(`{"not":"an array"}`))
	assert.Error(t, err)

	empty, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	records := []Speaker{
		{ID: "speaker1", Name: "Bob & Co", Bio: "<b>talks</b>"},
		{ID: "speaker2", Name: "Ann & Partners", Extra: map[string]json.RawMessage{"note": json.RawMessage(`"a & b"`)}},
	}

	data, err := Encode(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Bob & Co"`)
	assert.Contains(t, string(data), `"bio": "<b>talks</b>"`)
	assert.Contains(t, string(data), `"name": "Ann & Partners"`)
	assert.NotContains(t, string(data), `\u0026`)

	one, err := EncodeRecord(&records[0])
	require.NoError(t, err)
	assert.Contains(t, string(one), `"name": "Bob & Co"`)
}

func TestEncodeNormalizesKnownKeys(t *testing.T) {
	records, err := Decode([]byte(`[{"id":"speaker1","name":"Ann","company":"","languages":{}}]`))
	require.NoError(t, err)

	data, err := Encode(records)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"speaker1","name":"Ann","internal":false,"external":false}]`, string(data))
}
