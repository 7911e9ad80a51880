package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeFor[time.Duration]()

// MergeFromEnv overrides cfg fields from the HOOKPROF_* variables named by
// their `env` tags, descending into nested sections. Empty variables are
// ignored. It returns the names of the variables it applied.
func MergeFromEnv(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, nil
	}
	var applied []string
	err := walkEnv(reflect.ValueOf(cfg).Elem(), func(field reflect.Value, name, key string) error {
		raw := os.Getenv(key)
		if raw == "" {
			return nil
		}
		if err := decodeEnv(field, raw); err != nil {
			return fmt.Errorf("invalid %s for %s: %w", key, name, err)
		}
		applied = append(applied, key)
		return nil
	})
	return applied, err
}

// walkEnv calls fn for every settable field of section that carries an
// `env` tag.
func walkEnv(section reflect.Value, fn func(field reflect.Value, name, key string) error) error {
	t := section.Type()
	for i := range section.NumField() {
		field, sf := section.Field(i), t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := walkEnv(field, fn); err != nil {
				return err
			}
			continue
		}
		if key := sf.Tag.Get("env"); key != "" {
			if err := fn(field, sf.Name, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeEnv(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.Ptr:
		// A pointer keeps "unset" apart from an explicit zero value.
		elem := reflect.New(field.Type().Elem())
		if err := decodeEnv(elem.Elem(), raw); err != nil {
			return err
		}
		field.Set(elem)
	case reflect.String:
		field.SetString(raw)
	case reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		var values []string
		for v := range strings.SplitSeq(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("unsupported type %s", field.Kind())
	}
	return nil
}
