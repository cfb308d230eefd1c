package models

import (
	"fmt"
	"strconv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

func putOptFloat(f map[string]string, key string, v *float64) {
	if v != nil {
		f[key] = formatFloat(*v)
	}
}

func requireString(fields map[string]string, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing field %q", key)
	}
	return v, nil
}

func requireFloat(fields map[string]string, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid field %q: %w", key, err)
	}
	return v, nil
}

func optFloat(fields map[string]string, key string) (*float64, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid field %q: %w", key, err)
	}
	return &v, nil
}
