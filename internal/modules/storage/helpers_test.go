package storage

import "encoding/json"

func decodeJSON(raw json.RawMessage, v any) error { return json.Unmarshal(raw, v) }
