package storage

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by a Backend when a slot has never been written.
var ErrNotFound = errors.New("storage: slot not found")

// LegacyVersion marks a slot written before envelopes existed: a bare JSON value.
const LegacyVersion = 0

// Slot is what Load hands back to a slot owner: the payload plus the version it was written with.
type Slot struct {
	Version int
	SavedAt time.Time
	Data    json.RawMessage
}

// Entry is one slot to be written.
type Entry struct {
	Key     string
	Version int
	Value   any
}

// envelope is the persisted shape of every slot.
type envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// envelopeHead tells an envelope apart from a legacy bare value.
type envelopeHead struct {
	Version *int            `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// decodeSlot accepts both envelopes and legacy bare JSON values.
func decodeSlot(raw []byte) (Slot, error) {
	if !json.Valid(raw) {
		return Slot{}, errors.New("storage: slot is not valid JSON")
	}
	var p envelopeHead
	if err := json.Unmarshal(raw, &p); err == nil && p.Version != nil && p.Data != nil {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return Slot{}, err
		}
		return Slot{Version: env.Version, SavedAt: env.SavedAt, Data: env.Data}, nil
	}
	return Slot{Version: LegacyVersion, Data: json.RawMessage(raw)}, nil
}

func encodeSlot(version int, savedAt time.Time, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: version, SavedAt: savedAt.UTC(), Data: data})
}
