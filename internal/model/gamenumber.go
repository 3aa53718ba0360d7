package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// GameNumber is a game's position in the season. Older backups store it as a
// string, newer ones as a number; both decode, and numeric values always
// encode back as JSON numbers.
type GameNumber string

func (n GameNumber) MarshalJSON() ([]byte, error) {
	if v, err := strconv.Atoi(string(n)); err == nil && strconv.Itoa(v) == string(n) {
		return []byte(n), nil
	}
	return json.Marshal(string(n))
}

func (n *GameNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = GameNumber(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("gameNumber: %w", err)
	}
	*n = GameNumber(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Int returns the numeric value, or 0 when it is not a whole number.
func (n GameNumber) Int() int {
	v, _ := strconv.Atoi(string(n))
	return v
}
