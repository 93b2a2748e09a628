package field

// String is the plain string variant.
type String struct{ base }

func (f *String) Set(v any) error { return f.base.set(v) }

func (f *String) HasChangesToCommit(expectWrites bool) bool {
	return f.base.HasChangesToCommit(expectWrites, f.Mutated())
}

func (f *String) WriteValue() (any, bool) { return f.base.writeValue(f.Mutated()) }

// GetString is a typed convenience accessor.
func (f *String) GetString() (string, error) {
	v, err := f.Get()
	if err != nil || v == nil {
		return "", err
	}
	return v.(string), nil
}
