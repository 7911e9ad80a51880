package querylog

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Interpolate substitutes args for the placeholders of query and collapses
// its whitespace to single spaces. The result is for display only: it is
// valid SQL that can be pasted into DuckDB, but values are not escaped for
// anything other than quotes.
func Interpolate(query string, args []driver.NamedValue) string {
	for _, arg := range args {
		query = strings.Replace(query, "?", literal(arg.Value), 1)
	}
	return strings.Join(strings.Fields(query), " ")
}

func literal(v any) string {
	switch v := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		return "'" + v.Format(time.RFC3339Nano) + "'"
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("'%v'", v)
	}
}

func valuesToNamed(values []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(values))
	for i, v := range values {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}
