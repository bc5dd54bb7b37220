package sources

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SourceConfig struct {
	Name           string            `koanf:"name" json:"name"`
	ConnectionType string            `koanf:"type" json:"type"`
	Config         map[string]string `koanf:"config" json:"config"`
	Key            string            `koanf:"key" json:"key"`
}

// Require returns an error naming the first key that is missing or empty.
func (c SourceConfig) Require(keys ...string) error {
	for _, k := range keys {
		if strings.TrimSpace(c.Config[k]) == "" {
			return fmt.Errorf("%s source %q: missing config value %q", c.ConnectionType, c.Name, k)
		}
	}
	return nil
}

func (c SourceConfig) String(key, def string) string {
	if v, ok := c.Config[key]; ok && v != "" {
		return v
	}
	return def
}

func (c SourceConfig) Int(key string, def int) (int, error) {
	v, ok := c.Config[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s source %q: %s: %w", c.ConnectionType, c.Name, key, err)
	}
	return n, nil
}

func (c SourceConfig) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := c.Config[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s source %q: %s: %w", c.ConnectionType, c.Name, key, err)
	}
	return d, nil
}

// List splits a comma separated value, dropping empty entries.
func (c SourceConfig) List(key string) []string {
	var out []string
	for _, v := range strings.Split(c.Config[key], ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c SourceConfig) info() string {
	return fmt.Sprintf("Key:%s|Name:%s|Type:%s", c.Key, c.Name, c.ConnectionType)
}
