package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// JSONMap is a JSON object bag stored as text
type JSONMap map[string]interface{}

// GormDataType stores the bag as unbounded text on every dialect
func (JSONMap) GormDataType() string { return "string" }

// Scan implements the sql.Scanner interface for JSONMap.
// Malformed stored text reads back as an empty object.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	out := JSONMap{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*m = out
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		*m = JSONMap{}
		return nil
	}
	*m = out
	return nil
}

// Value implements the driver.Valuer interface for JSONMap
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Clone returns a shallow copy
func (m JSONMap) Clone() JSONMap {
	if m == nil {
		return nil
	}
	out := make(JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// JSONRaw holds an opaque JSON document such as a list of supporting files
type JSONRaw json.RawMessage

// GormDataType keeps the document as text rather than binary
func (JSONRaw) GormDataType() string { return "string" }

// Scan implements the sql.Scanner interface for JSONRaw
func (r *JSONRaw) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case string:
		*r = JSONRaw(v)
	case []byte:
		*r = append(JSONRaw(nil), v...)
	default:
		return fmt.Errorf("unsupported type for JSONRaw: %T", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for JSONRaw
func (r JSONRaw) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	if !json.Valid(r) {
		return nil, fmt.Errorf("invalid json document")
	}
	return string(r), nil
}

// MarshalJSON keeps the document verbatim
func (r JSONRaw) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps the document verbatim
func (r *JSONRaw) UnmarshalJSON(data []byte) error {
	*r = append((*r)[0:0], data...)
	return nil
}

// VersionNumber is a major.minor decimal kept in tenths, so 1.1 is 11
type VersionNumber int64

// InitialVersion is the version of every root contract
const InitialVersion VersionNumber = 10

// NewVersion builds a version from its parts; minor must be 0..9
func NewVersion(major, minor int64) VersionNumber {
	return VersionNumber(major*10 + minor)
}

// Major returns the integer part
func (v VersionNumber) Major() int64 { return int64(v) / 10 }

// Minor returns the fractional digit
func (v VersionNumber) Minor() int64 { return int64(v) % 10 }

// String renders the version as "M.m"
func (v VersionNumber) String() string {
	return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
}

// Float is the decimal value of the version
func (v VersionNumber) Float() float64 { return float64(v) / 10 }

// ParseVersion accepts "1", "1.0", "2.3"
func ParseVersion(s string) (VersionNumber, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty version number")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid version number %q", s)
	}
	return VersionNumber(math.Round(f * 10)), nil
}

// Scan implements the sql.Scanner interface for VersionNumber
func (v *VersionNumber) Scan(value interface{}) error {
	switch t := value.(type) {
	case nil:
		*v = InitialVersion
	case float64:
		*v = VersionNumber(math.Round(t * 10))
	case float32:
		*v = VersionNumber(math.Round(float64(t) * 10))
	case int64:
		*v = VersionNumber(t * 10)
	case []byte:
		p, err := ParseVersion(string(t))
		if err != nil {
			return err
		}
		*v = p
	case string:
		p, err := ParseVersion(t)
		if err != nil {
			return err
		}
		*v = p
	default:
		return fmt.Errorf("unsupported type for VersionNumber: %T", value)
	}
	return nil
}

// Value implements the driver.Valuer interface for VersionNumber
func (v VersionNumber) Value() (driver.Value, error) {
	return v.String(), nil
}

// MarshalJSON renders the version as a JSON number
func (v VersionNumber) MarshalJSON() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalJSON accepts a number or a quoted string
func (v *VersionNumber) UnmarshalJSON(data []byte) error {
	p, err := ParseVersion(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*v = p
	return nil
}
