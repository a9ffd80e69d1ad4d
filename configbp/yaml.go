package configbp

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/reddit/crossprocess.go/set"
)

// Int64String is an int64 type that can be yaml deserialized from either
// numbers or strings.
//
// It's useful when the yaml config goes through helm,
// which could cause precision loss on large int64 numbers:
// https://github.com/helm/helm/issues/11045
type Int64String int64

// Int64Set is a set of int64 that can be yaml deserialized from either a
// sequence of Int64String or a single comma separated string, which makes it
// possible to fill it from one environment variable:
//
//	trustedAccountIDs: $TRUSTED_ACCOUNT_IDS
type Int64Set set.Int64

var (
	_ yaml.Unmarshaler = (*Int64String)(nil)
	_ yaml.Unmarshaler = (*Int64Set)(nil)
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Int64String) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	i64, err := parseInt64(s)
	if err != nil {
		return err
	}
	*i = Int64String(i64)
	return nil
}

func parseInt64(s string) (int64, error) {
	i64, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as int64: %v", s, err)
	}
	return i64, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Int64Set) UnmarshalYAML(unmarshal func(interface{}) error) error {
	result := make(set.Int64)

	var list []Int64String
	if err := unmarshal(&list); err == nil {
		for _, i := range list {
			result.Add(int64(i))
		}
		*s = Int64Set(result)
		return nil
	}

	var str string
	if err := unmarshal(&str); err != nil {
		return fmt.Errorf("expected a list or a comma separated string of int64: %w", err)
	}
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		i64, err := parseInt64(part)
		if err != nil {
			return err
		}
		result.Add(i64)
	}
	*s = Int64Set(result)
	return nil
}

// ToSet returns s as a set.Int64.
func (s Int64Set) ToSet() set.Int64 {
	return set.Int64(s)
}
