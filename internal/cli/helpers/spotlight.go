package helpers

// Spotlight drops rows whose metrics are all zero-ish. A cache metric counts
// when the cache ratio is set and below 100%; time and query_time count above
// 10ms; any other metric counts when it is non-zero.
func Spotlight(rows []Row, metrics []string) []Row {
	var out []Row
	for _, row := range rows {
		if lit(row, metrics) {
			out = append(out, row)
		}
	}
	return out
}

func lit(row Row, metrics []string) bool {
	for _, metric := range metrics {
		switch metric {
		case "cache_ratio", "cache_hits", "cache_misses":
			if r, ok := row["cache_ratio"].(string); ok && r != "" && r != "100%" {
				return true
			}
		case "time", "query_time":
			if v, ok := number(row[metric]); ok && v > 0.01 {
				return true
			}
		default:
			if truthy(row[metric]) {
				return true
			}
		}
	}
	return false
}

func truthy(v any) bool {
	if f, ok := number(v); ok {
		return f != 0
	}
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != "" && x != "0"
	case bool:
		return x
	default:
		return true
	}
}
