package providers

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// optFloat decodes a JSON number, a numeric string, null or a placeholder
// such as "NA". V is nil for anything that is not a number.
type optFloat struct {
	V *float64
}

func (f *optFloat) UnmarshalJSON(b []byte) error {
	f.V = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			f.V = &v
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	f.V = &v
	return nil
}
