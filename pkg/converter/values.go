package converter

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ToRaw renders a driver value the way it would appear in an uploaded CSV.
// NULL and null-like strings become "".
func (c *TypeConverter) ToRaw(value interface{}) (string, error) {
	if c.isNull(value) {
		return "", nil
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case []byte:
		return strings.TrimSpace(string(v)), nil
	case bool:
		return c.formatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case *big.Float:
		if v == nil {
			return "", nil
		}
		return v.Text('f', -1), nil
	case *big.Int:
		if v == nil {
			return "", nil
		}
		return v.String(), nil
	case time.Time:
		return c.formatTime(v), nil
	case *string:
		if v == nil {
			return "", nil
		}
		return c.ToRaw(*v)
	default:
		// Structured warehouse types arrive as maps or slices
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("cannot convert %T to text: %w", value, err)
		}
		return string(jsonBytes), nil
	}
}

// isNull determines if a value should be treated as missing
func (c *TypeConverter) isNull(value interface{}) bool {
	if value == nil {
		return true
	}
	if strVal, ok := value.(string); ok {
		for _, null := range c.config.NullTokens {
			if strings.TrimSpace(strVal) == null {
				return true
			}
		}
	}
	return false
}

func (c *TypeConverter) formatBool(v bool) string {
	if !c.config.YesNoBooleans {
		return strconv.FormatBool(v)
	}
	if v {
		return "Yes"
	}
	return "No"
}

func (c *TypeConverter) formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(c.config.DateLayout)
	}
	return t.Format(c.config.TimeLayout)
}
