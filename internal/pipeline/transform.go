package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/tarungka/rxwire/internal/models"
)

// ErrUnknownTransform is returned for a transform name that is not registered.
var ErrUnknownTransform = errors.New("unknown transform")

// Transform processes one record. It may modify and return its argument.
type Transform func(rec *models.Record) (*models.Record, error)

var (
	transformsMu sync.RWMutex
	transforms   = map[string]Transform{
		"identity":  identity,
		"uppercase": uppercase,
	}
)

// RegisterTransform makes fn available under name.
func RegisterTransform(name string, fn Transform) {
	transformsMu.Lock()
	defer transformsMu.Unlock()
	transforms[name] = fn
}

// TransformNames lists the registered transforms in sorted order.
func TransformNames() []string {
	transformsMu.RLock()
	defer transformsMu.RUnlock()
	names := make([]string, 0, len(transforms))
	for n := range transforms {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Chain composes the named transforms, applied in order. No names yields
// identity.
func Chain(names ...string) (Transform, error) {
	transformsMu.RLock()
	defer transformsMu.RUnlock()

	fns := make([]Transform, 0, len(names))
	for _, n := range names {
		fn, ok := transforms[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTransform, n)
		}
		fns = append(fns, fn)
	}
	if len(fns) == 0 {
		return identity, nil
	}

	return func(rec *models.Record) (*models.Record, error) {
		var err error
		for i, fn := range fns {
			if rec, err = fn(rec); err != nil {
				return nil, fmt.Errorf("transform %s: %w", names[i], err)
			}
		}
		return rec, nil
	}, nil
}

func identity(rec *models.Record) (*models.Record, error) {
	return rec, nil
}

// uppercase upper-cases every string value of a JSON document, at any depth.
// Values that are not JSON objects or arrays pass through unchanged.
func uppercase(rec *models.Record) (*models.Record, error) {
	data, err := rec.Data()
	if err != nil {
		// empty or not JSON
		return rec, nil
	}

	switch typed := data.(type) {
	case map[string]any, []any:
		uppercaseJSON(typed)
		out := rec.Clone()
		if err := out.SetData(typed); err != nil {
			return nil, err
		}
		return out, nil
	}
	return rec, nil
}

func uppercaseJSON(data any) {
	switch v := data.(type) {
	case map[string]any:
		for key, val := range v {
			switch valTyped := val.(type) {
			case string:
				v[key] = strings.ToUpper(valTyped)
			case map[string]any, []any:
				uppercaseJSON(valTyped)
			}
		}
	case []any:
		for i, val := range v {
			switch valTyped := val.(type) {
			case string:
				v[i] = strings.ToUpper(valTyped)
			case map[string]any, []any:
				uppercaseJSON(valTyped)
			}
		}
	}
}
