package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration written as a Go duration string ("250ms", "15m").
type Duration struct {
	time.Duration
}

// D wraps d as a Duration.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
