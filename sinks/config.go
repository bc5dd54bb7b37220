package sinks

import (
	"fmt"
	"strconv"
	"strings"
)

type SinkConfig struct {
	Name           string            `koanf:"name" json:"name"`
	ConnectionType string            `koanf:"type" json:"type"`
	Config         map[string]string `koanf:"config" json:"config"`
	Key            string            `koanf:"key" json:"key"`
}

// Require returns an error naming the first key that is missing or empty.
func (c SinkConfig) Require(keys ...string) error {
	for _, k := range keys {
		if strings.TrimSpace(c.Config[k]) == "" {
			return fmt.Errorf("%s sink %q: missing config value %q", c.ConnectionType, c.Name, k)
		}
	}
	return nil
}

func (c SinkConfig) String(key, def string) string {
	if v, ok := c.Config[key]; ok && v != "" {
		return v
	}
	return def
}

func (c SinkConfig) Bool(key string, def bool) (bool, error) {
	v, ok := c.Config[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s sink %q: %s: %w", c.ConnectionType, c.Name, key, err)
	}
	return b, nil
}

// List splits a comma separated value, dropping empty entries.
func (c SinkConfig) List(key string) []string {
	var out []string
	for _, v := range strings.Split(c.Config[key], ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c SinkConfig) info() string {
	return fmt.Sprintf("Key:%s|Name:%s|Type:%s", c.Key, c.Name, c.ConnectionType)
}
