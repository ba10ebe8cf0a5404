package speakers

import (
	"bytes"
	"encoding/json"

	"github.com/agentstation/speakerpool/pkg/errors"
)

// Decode parses a canonical collection (a JSON array of speakers).
func Decode(data []byte) ([]Speaker, error) {
	var records []Speaker
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return records, nil
}

// Encode renders a collection as indented JSON, the format the canonical key is stored in.
func Encode(records []Speaker) ([]byte, error) {
	if records == nil {
		records = []Speaker{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeRecord renders one record as indented JSON, the format of a delta artifact.
func EncodeRecord(record *Speaker) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
