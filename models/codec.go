package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonbValue is the single canonical codec used for every structured sub-object
// stored in a jsonb column (children pricing detail, room lists, config
// snapshots). Centralizing it keeps the wire shape identical on every write.
func jsonbValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb column: %w", err)
	}
	return data, nil
}

func jsonbScan(src, dst any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(s, dst)
	case string:
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
