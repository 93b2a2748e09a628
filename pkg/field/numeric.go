package field

import (
	"fmt"

	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/errors"
)

// Numeric backs both the integer and number type tags and adds
// incrementBy, the one operation that can turn a write into an atomic
// driver-side increment instead of a read-modify-write.
type Numeric struct {
	base
	diffAccumulator *float64
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a numeric value, got %T", v)
	}
}

func (f *Numeric) Set(v any) error {
	fv, err := toFloat64(v)
	if err != nil {
		return errors.NewFieldError(f.name, err.Error())
	}
	if err := f.base.set(fv); err != nil {
		return err
	}
	f.diffAccumulator = nil
	return nil
}

// CanUseIncrement reports whether the pending change can be expressed as a
// driver-side atomic increment: there is an accumulator, a defined initial
// value, and no read or explicit set has occurred.
func (f *Numeric) CanUseIncrement() bool {
	return f.diffAccumulator != nil && f.hadInitial && !f.readAccessed && !f.written
}

// IncrementBy accumulates delta. If the field has not been read and has not
// had a direct Set, the delta is folded into diffAccumulator and value is
// recomputed from the initial value plus the running accumulator — a
// driver-side atomic increment. Otherwise it downgrades to a
// read-modify-write via Set. Invalid when the field has no initial value.
func (f *Numeric) IncrementBy(delta float64) error {
	if !f.hadInitial {
		return errors.NewFieldError(f.name, "cannot increment a field with no initial value")
	}

	if !f.readAccessed && !f.written {
		if f.diffAccumulator == nil {
			zero := 0.0
			f.diffAccumulator = &zero
		}
		*f.diffAccumulator += delta

		initial, err := toFloat64(f.initialValue)
		if err != nil {
			return errors.NewFieldError(f.name, err.Error())
		}
		f.value = initial + *f.diffAccumulator
		return nil
	}

	current, err := toFloat64(f.value)
	if err != nil {
		return errors.NewFieldError(f.name, err.Error())
	}
	return f.Set(current + delta)
}

// Mutated overrides base.Mutated: an increment accumulated without a read
// or explicit Set never touches readAccessed/written (that's what keeps
// CanUseIncrement true), so base's may-have-mutated fast path never fires
// for it. A pending accumulator is itself proof of a pending change.
func (f *Numeric) Mutated() bool {
	if f.diffAccumulator != nil {
		return true
	}
	return f.base.Mutated()
}

func (f *Numeric) HasChangesToCommit(expectWrites bool) bool {
	return f.base.HasChangesToCommit(expectWrites, f.Mutated())
}

func (f *Numeric) WriteValue() (any, bool) {
	mutated := f.Mutated()
	if !mutated {
		return nil, false
	}
	if f.CanUseIncrement() {
		return driver.Increment(*f.diffAccumulator), true
	}
	return f.base.writeValue(mutated)
}

// GetFloat is a typed convenience accessor.
func (f *Numeric) GetFloat() (float64, error) {
	v, err := f.Get()
	if err != nil || v == nil {
		return 0, err
	}
	return v.(float64), nil
}

// GetInt is a typed convenience accessor that truncates toward zero.
func (f *Numeric) GetInt() (int64, error) {
	v, err := f.GetFloat()
	return int64(v), err
}
