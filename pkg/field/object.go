package field

// Object holds a map[string]any value; see Array's doc comment regarding
// deep-equality mutation detection.
type Object struct{ base }

func (f *Object) Set(v any) error { return f.base.set(v) }

func (f *Object) HasChangesToCommit(expectWrites bool) bool {
	return f.base.HasChangesToCommit(expectWrites, f.Mutated())
}

func (f *Object) WriteValue() (any, bool) { return f.base.writeValue(f.Mutated()) }

// GetMap is a typed convenience accessor.
func (f *Object) GetMap() (map[string]any, error) {
	v, err := f.Get()
	if err != nil || v == nil {
		return nil, err
	}
	return v.(map[string]any), nil
}
