package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RecordVersion is the envelope version written by EncodeRecord.
const RecordVersion = 1

// DecodeResult is the explicit outcome of reading a persisted record.
type DecodeResult int

const (
	Absent DecodeResult = iota
	Decoded
	Corrupt
)

func (r DecodeResult) String() string {
	switch r {
	case Absent:
		return "absent"
	case Decoded:
		return "decoded"
	case Corrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("DecodeResult(%d)", int(r))
	}
}

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// legacy clients wrote these when they had nothing to store
var emptyMarkers = map[string]struct{}{
	"":          {},
	"undefined": {},
	"null":      {},
}

func isEmptyMarker(raw string) bool {
	_, ok := emptyMarkers[strings.TrimSpace(raw)]
	return ok
}

// EncodeRecord wraps v in a versioned envelope.
func EncodeRecord(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(envelope{Version: RecordVersion, Data: data})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DecodeRecord decodes a value written by EncodeRecord into v. The returned error
// describes why a record is Corrupt and is nil otherwise.
func DecodeRecord(raw string, present bool, v interface{}) (DecodeResult, error) {
	if !present || isEmptyMarker(raw) {
		return Absent, nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return Corrupt, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version != RecordVersion {
		return Corrupt, fmt.Errorf("unsupported record version %d", env.Version)
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return Absent, nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return Corrupt, fmt.Errorf("decode record data: %w", err)
	}
	return Decoded, nil
}

// DecodeToken reads the bearer token, which is stored as a bare string.
func DecodeToken(raw string, present bool) (string, DecodeResult) {
	if !present || isEmptyMarker(raw) {
		return "", Absent
	}
	token := strings.TrimSpace(raw)
	if strings.ContainsAny(token, " \t\r\n") {
		return "", Corrupt
	}
	return token, Decoded
}
