package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// OptionMap stores the five labeled options (A–E) as a JSON column.
type OptionMap map[string]string

func (m OptionMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *OptionMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// ScoreMap stores per-option points for scored questions as a JSON column.
type ScoreMap map[string]float64

func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *ScoreMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// Max returns the highest attainable score in the map.
func (m ScoreMap) Max() float64 {
	max := 0.0
	for _, v := range m {
		if v > max {
			max = v
		}
	}
	return max
}

// StringList stores an ordered list of ids as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// BucketStat is one entry of a per-subject or per-difficulty breakdown.
type BucketStat struct {
	Questions int     `json:"questions"`
	Correct   int     `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// Recalc refreshes the derived accuracy from the counters.
func (b *BucketStat) Recalc() {
	if b.Questions > 0 {
		b.Accuracy = float64(b.Correct) / float64(b.Questions)
	} else {
		b.Accuracy = 0
	}
}

// StatMap stores breakdown buckets keyed by subject or difficulty.
type StatMap map[string]BucketStat

func (m StatMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]BucketStat{})
	}
	return json.Marshal(m)
}

func (m *StatMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
