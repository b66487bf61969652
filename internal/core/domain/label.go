package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// NullLabel is the bucket label used for SQL NULL in value distributions.
const NullLabel = "NULL"

const labelTimeLayout = "2006-01-02 15:04:05"

// FormatValue renders a raw driver value as a distribution label.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return NullLabel
	case string:
		return t
	case []byte:
		return string(t)
	case time.Time:
		if t.Nanosecond() != 0 {
			return t.Format(labelTimeLayout + ".999999")
		}
		return t.Format(labelTimeLayout)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return FormatValue(inner)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
