package main

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is one decoded telemetry message. It is built per message and
// not retained after rendering.
type Snapshot struct {
	// CPUs holds one load percentage (0-100) per logical processor, in
	// processor index order.
	CPUs []float64
	// RAM is (used bytes, total bytes).
	RAM [2]uint64
}

// wireSnapshot mirrors the producer's JSON: {"cpus":[...],"ram":[used,total]}.
// Elements stay raw so null and quoted values can be rejected.
type wireSnapshot struct {
	CPUs *[]jsoniter.RawMessage `json:"cpus"`
	RAM  []jsoniter.RawMessage  `json:"ram"`
}

// DecodeError reports a payload that is not a valid snapshot.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode snapshot: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

const maxPayloadEcho = 120

func newDecodeError(payload []byte, err error) *DecodeError {
	text := string(payload)
	if len(text) > maxPayloadEcho {
		text = text[:maxPayloadEcho] + "..."
	}
	return &DecodeError{Payload: text, Err: err}
}

// DecodeSnapshot parses one wire message. Any structural problem yields
// a *DecodeError; an empty cpus array is valid.
func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	var wire wireSnapshot
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, newDecodeError(payload, err)
	}
	if wire.CPUs == nil {
		return nil, newDecodeError(payload, errors.New(`missing "cpus"`))
	}
	if wire.RAM == nil {
		return nil, newDecodeError(payload, errors.New(`missing "ram"`))
	}
	if len(wire.RAM) != 2 {
		return nil, newDecodeError(payload, fmt.Errorf(`"ram" must have 2 entries, got %d`, len(wire.RAM)))
	}

	snap := &Snapshot{CPUs: make([]float64, len(*wire.CPUs))}
	for i, raw := range *wire.CPUs {
		v, err := parseLoad(raw)
		if err != nil {
			return nil, newDecodeError(payload, fmt.Errorf("cpus[%d]: %w", i, err))
		}
		snap.CPUs[i] = v
	}
	for i, raw := range wire.RAM {
		v, err := parseByteCount(raw)
		if err != nil {
			return nil, newDecodeError(payload, fmt.Errorf("ram[%d]: %w", i, err))
		}
		snap.RAM[i] = v
	}
	return snap, nil
}

// numberToken returns the literal text of a JSON number. null, strings
// and every other JSON type are rejected.
func numberToken(raw jsoniter.RawMessage) (string, error) {
	token := bytes.TrimSpace(raw)
	if len(token) == 0 || bytes.Equal(token, []byte("null")) {
		return "", errors.New("null is not a number")
	}
	if c := token[0]; (c != '-' && (c < '0' || c > '9')) || !json.Valid(token) {
		return "", fmt.Errorf("%s is not a number", token)
	}
	return string(token), nil
}

func parseLoad(raw jsoniter.RawMessage) (float64, error) {
	s, err := numberToken(raw)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s is out of range", s)
	}
	return v, nil
}

// parseByteCount accepts a non-negative integer, including exponent
// forms such as 1e9 as long as the value is integral.
func parseByteCount(raw jsoniter.RawMessage) (uint64, error) {
	s, err := numberToken(raw)
	if err != nil {
		return 0, err
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative byte count %s", s)
	}
	if f != math.Trunc(f) || f >= math.MaxUint64 {
		return 0, fmt.Errorf("byte count %s is not a valid integer", s)
	}
	return uint64(f), nil
}
