package field

// Boolean is the plain boolean variant.
type Boolean struct{ base }

func (f *Boolean) Set(v any) error { return f.base.set(v) }

func (f *Boolean) HasChangesToCommit(expectWrites bool) bool {
	return f.base.HasChangesToCommit(expectWrites, f.Mutated())
}

func (f *Boolean) WriteValue() (any, bool) { return f.base.writeValue(f.Mutated()) }

// GetBool is a typed convenience accessor.
func (f *Boolean) GetBool() (bool, error) {
	v, err := f.Get()
	if err != nil || v == nil {
		return false, err
	}
	return v.(bool), nil
}
