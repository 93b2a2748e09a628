// Package txcontext implements the Context (Transaction Core): the
// tracked-document table, commit-time write dispatch, error classification,
// and the retry loop with exponential backoff and jitter.
package txcontext

import (
	"time"

	"github.com/theory-cloud/firedoc/pkg/errors"
)

// Options configures one Run invocation.
type Options struct {
	ReadOnly        bool
	ConsistentReads bool
	Retries         int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	CacheModels     bool
}

// DefaultOptions returns the documented defaults: ReadOnly=false,
// ConsistentReads=true, Retries=4, InitialBackoff=500ms, MaxBackoff=10s,
// CacheModels=false.
func DefaultOptions() Options {
	return Options{
		ReadOnly:        false,
		ConsistentReads: true,
		Retries:         4,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      10 * time.Second,
		CacheModels:     false,
	}
}

// Validate rejects the one illegal combination and out-of-range values.
func (o Options) Validate() error {
	if !o.ReadOnly && !o.ConsistentReads {
		return errors.NewOptionsError("consistentReads", "combining readOnly=false with consistentReads=false is not legal")
	}
	if o.Retries < 0 {
		return errors.NewOptionsError("retries", "must be >= 0")
	}
	if o.InitialBackoff < time.Millisecond {
		return errors.NewOptionsError("initialBackoff", "must be >= 1ms")
	}
	if o.MaxBackoff < 200*time.Millisecond {
		return errors.NewOptionsError("maxBackoff", "must be >= 200ms")
	}
	return nil
}

// FromMap applies an untyped option map over DefaultOptions, raising
// InvalidOptions for an unknown name or a value of the wrong primitive
// kind. This accepts loosely-typed configuration at a boundary, e.g. a
// YAML-loaded scenario fixture.
func FromMap(overrides map[string]any) (Options, error) {
	opts := DefaultOptions()
	for name, v := range overrides {
		switch name {
		case "readOnly":
			b, ok := v.(bool)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected bool")
			}
			opts.ReadOnly = b
		case "consistentReads":
			b, ok := v.(bool)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected bool")
			}
			opts.ConsistentReads = b
		case "cacheModels":
			b, ok := v.(bool)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected bool")
			}
			opts.CacheModels = b
		case "retries":
			n, ok := toInt(v)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected integer")
			}
			opts.Retries = n
		case "initialBackoff":
			d, ok := toDuration(v)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected duration in milliseconds")
			}
			opts.InitialBackoff = d
		case "maxBackoff":
			d, ok := toDuration(v)
			if !ok {
				return Options{}, errors.NewOptionsError(name, "expected duration in milliseconds")
			}
			opts.MaxBackoff = d
		default:
			return Options{}, errors.NewOptionsError(name, "unrecognized option")
		}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toDuration(v any) (time.Duration, bool) {
	n, ok := toInt(v)
	if !ok {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}
