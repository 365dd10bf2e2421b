package app

import "strconv"

// ContextValue returns the value stored under key with Set, or the zero value.
func ContextValue[T any](c Context, key any) T {
	if v, ok := c.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// QueryInt reads an integer query parameter. Empty or malformed values give
// the default, and the result is clamped to [lo, hi].
func QueryInt(c Context, name string, def, lo, hi int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// QueryFloat reads a float query parameter, or def.
func QueryFloat(c Context, name string, def float64) float64 {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return def
	}
	return v
}

// Bind decodes and validates the JSON body, folding validation failures
// into the returned error.
func Bind(c Context, v any) error {
	verrs, err := c.BindJSON(v)
	if err != nil {
		return err
	}
	if len(verrs) > 0 {
		return verrs
	}
	return nil
}
