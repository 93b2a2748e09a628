// Package mocks provides a testify mock of driver.Store, for interaction
// tests of code that depends on firedoc without a real or fake backing
// store (mirrors the teacher's pkg/mocks/db.go mock.Mock-embedding style).
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

// Store is a mock.Mock implementation of driver.Store.
//
// Example usage:
//
//	st := new(mocks.Store)
//	st.On("Get", mock.Anything, driver.Ref{Collection: "Order", ID: "A1"}).
//		Return(mocks.Snapshot{}, nil)
type Store struct {
	mock.Mock
}

func (m *Store) Get(ctx context.Context, ref driver.Ref) (driver.Snapshot, error) {
	args := m.Called(ctx, ref)
	snap, _ := args.Get(0).(driver.Snapshot)
	return snap, args.Error(1)
}

func (m *Store) GetAll(ctx context.Context, refs []driver.Ref) ([]driver.Snapshot, error) {
	args := m.Called(ctx, refs)
	snaps, _ := args.Get(0).([]driver.Snapshot)
	return snaps, args.Error(1)
}

func (m *Store) Create(ctx context.Context, ref driver.Ref, data map[string]any) error {
	args := m.Called(ctx, ref, data)
	return args.Error(0)
}

func (m *Store) Set(ctx context.Context, ref driver.Ref, data map[string]any, opts driver.SetOptions) error {
	args := m.Called(ctx, ref, data, opts)
	return args.Error(0)
}

func (m *Store) Update(ctx context.Context, ref driver.Ref, data map[string]any) error {
	args := m.Called(ctx, ref, data)
	return args.Error(0)
}

func (m *Store) Delete(ctx context.Context, ref driver.Ref, opts driver.DeleteOptions) error {
	args := m.Called(ctx, ref, opts)
	return args.Error(0)
}

func (m *Store) RunTransaction(ctx context.Context, fn func(context.Context, driver.Store) error, opts driver.TxOptions) error {
	args := m.Called(ctx, fn, opts)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

// Snapshot is a plain driver.Snapshot value for stubbing Get/GetAll
// returns, since driver.Snapshot is an interface and testify needs a
// concrete value to hand back.
type Snapshot struct {
	Found    bool
	Contents map[string]any
}

func (s Snapshot) Exists() bool         { return s.Found }
func (s Snapshot) Data() map[string]any { return s.Contents }
