package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/elostora/shop/internal/models"
	"gorm.io/gorm"
)

var (
	snapshotMu sync.RWMutex
	snapshot   = map[string]json.RawMessage{}
)

// StoreDBConfig replaces the in-memory settings snapshot.
func StoreDBConfig(values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		next[key] = append(json.RawMessage(nil), value...)
	}
	snapshotMu.Lock()
	snapshot = next
	snapshotMu.Unlock()
}

// SetDBConfigValue updates a single key in the snapshot.
func SetDBConfigValue(key string, value json.RawMessage) {
	snapshotMu.Lock()
	snapshot[key] = append(json.RawMessage(nil), value...)
	snapshotMu.Unlock()
}

// DBConfigValue returns the raw JSON value of key from the snapshot.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	value, ok := snapshot[key]
	return value, ok
}

// Reload reads every settings row into the snapshot.
func Reload(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("settings: nil db")
	}
	var rows []models.Setting
	if errFind := db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	values := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		values[row.Key] = json.RawMessage(row.Value)
	}
	StoreDBConfig(values)
	return nil
}

// BoolValue reads key as a boolean.
func BoolValue(key string) (bool, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return false, false
	}
	return ParseBool(raw)
}

// IntValue reads key as a non-negative integer.
func IntValue(key string) (int, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return 0, false
	}
	return ParseNonNegativeInt(raw)
}

// StringValue reads key as a trimmed string.
func StringValue(key string) (string, bool) {
	raw, ok := DBConfigValue(key)
	if !ok {
		return "", false
	}
	return ParseString(raw)
}

// ParseBool accepts JSON booleans, 0/1 and the usual yes/no strings.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var parsedBool bool
	if errUnmarshalBool := json.Unmarshal(raw, &parsedBool); errUnmarshalBool == nil {
		return parsedBool, true
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		switch strings.ToLower(strings.TrimSpace(parsedString)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		default:
			return false, false
		}
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return false, false
		}
		if parsedFloat == 1 {
			return true, true
		}
		if parsedFloat == 0 {
			return false, true
		}
	}
	return false, false
}

// ParseString accepts a JSON string.
func ParseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var parsedString string
	if errUnmarshal := json.Unmarshal(raw, &parsedString); errUnmarshal == nil {
		return strings.TrimSpace(parsedString), true
	}
	return "", false
}

// ParseNonNegativeInt accepts a JSON integer, an integral float or a numeric string.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var parsedInt int
	if errUnmarshalInt := json.Unmarshal(raw, &parsedInt); errUnmarshalInt == nil {
		return parsedInt, parsedInt >= 0
	}
	var parsedString string
	if errUnmarshalString := json.Unmarshal(raw, &parsedString); errUnmarshalString == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(parsedString))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var parsedFloat float64
	if errUnmarshalFloat := json.Unmarshal(raw, &parsedFloat); errUnmarshalFloat == nil {
		if math.IsNaN(parsedFloat) || math.IsInf(parsedFloat, 0) {
			return 0, false
		}
		if parsedFloat < 0 || parsedFloat != math.Trunc(parsedFloat) {
			return 0, false
		}
		return int(parsedFloat), true
	}
	return 0, false
}
