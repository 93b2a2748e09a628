package field

// Array holds a []any value. Its Mutated() uses base's reflect.DeepEqual
// comparison against initialValue, which is already a deep comparison for
// slices, so arrays get deep-equality mutation detection without needing a
// distinct comparison path.
type Array struct{ base }

func (f *Array) Set(v any) error { return f.base.set(v) }

func (f *Array) HasChangesToCommit(expectWrites bool) bool {
	return f.base.HasChangesToCommit(expectWrites, f.Mutated())
}

func (f *Array) WriteValue() (any, bool) { return f.base.writeValue(f.Mutated()) }

// GetSlice is a typed convenience accessor.
func (f *Array) GetSlice() ([]any, error) {
	v, err := f.Get()
	if err != nil || v == nil {
		return nil, err
	}
	return v.([]any), nil
}
