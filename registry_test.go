package swappable

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	s, err := Register(reg, "foo", fooDefinition(nil))
	require.NoError(t, err)
	assert.Equal(t, "foo", s.Name())

	found, err := Lookup[fooOpt, *foo](reg, "foo")
	require.NoError(t, err)
	assert.Same(t, s, found)

	require.NoError(t, found.Init(context.Background(), fooOpt{File: "A"}))
	f, err := Get[fooOpt, *foo](reg, "foo")
	require.NoError(t, err)
	assert.Equal(t, "A", f.File())
}

func TestRegisterErrors(t *testing.T) {
	_, err := Register(nil, "foo", fooDefinition(nil))
	require.Error(t, err)

	reg := NewRegistry()
	_, err = Register(reg, "", fooDefinition(nil))
	require.Error(t, err)

	var built atomic.Int32
	def := Definition[fooOpt, *foo]{
		New: func() (*foo, error) {
			built.Add(1)
			return &foo{}, nil
		},
	}
	_, err = Register(reg, "foo", def)
	require.NoError(t, err)

	_, err = Register(reg, "foo", def)
	require.Error(t, err)
	var dupErr DuplicateError
	assert.True(t, errors.As(err, &dupErr))
	assert.Equal(t, int32(1), built.Load(), "duplicate registration must not construct an instance")

	_, err = Register(reg, "broken", Definition[fooOpt, *foo]{
		New: func() (*foo, error) { return nil, assert.AnError },
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"foo"}, reg.Names())
}

func TestRegisterRaceReleasesLosingInstance(t *testing.T) {
	reg := NewRegistry()

	var seq atomic.Int32
	var built []*closingRes
	def := Definition[struct{}, *closingRes]{
		New: func() (*closingRes, error) {
			r := &closingRes{id: int(seq.Add(1)), accept: true}
			built = append(built, r)
			if r.id == 1 {
				// Another registration of the same name lands while this one builds.
				MustRegister(reg, "shared", closingDefinition(&seq), WithRelease())
			}
			return r, nil
		},
	}

	_, err := Register(reg, "shared", def, WithRelease())
	require.Error(t, err)
	var dupErr DuplicateError
	require.True(t, errors.As(err, &dupErr))

	require.Len(t, built, 1)
	assert.Equal(t, int32(1), built[0].closed.Load(), "losing instance is released")

	winner, err := Get[struct{}, *closingRes](reg, "shared")
	require.NoError(t, err)
	assert.Equal(t, 2, winner.id)
	assert.Equal(t, int32(0), winner.closed.Load())
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	MustRegister(reg, "foo", fooDefinition(nil))
	assert.Panics(t, func() {
		MustRegister(reg, "foo", fooDefinition(nil))
	})
}

func TestLookupErrors(t *testing.T) {
	reg := NewRegistry()
	_, err := Lookup[fooOpt, *foo](reg, "missing")
	require.Error(t, err)
	var notFound NotRegisteredError
	assert.True(t, errors.As(err, &notFound))

	var seq atomic.Int32
	MustRegister(reg, "closing", closingDefinition(&seq))

	_, err = Get[fooOpt, *foo](reg, "closing")
	require.Error(t, err)
	var typeErr TypeMismatchError
	require.True(t, errors.As(err, &typeErr))
	assert.Equal(t, "closing", typeErr.Name)
	assert.Contains(t, typeErr.Actual, "closingRes")
}

func TestRegistryStatus(t *testing.T) {
	reg := NewRegistry()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return at }

	var seq atomic.Int32
	MustRegister(reg, "zeta", closingDefinition(&seq), WithClock(clock))
	alpha := MustRegister(reg, "alpha", fooDefinition(nil), WithClock(clock))
	_, err := alpha.Reload(setFile("B"))
	require.NoError(t, err)

	statuses := reg.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, Status{Name: "alpha", Type: "*swappable.foo", Generation: 2, PublishedAt: at}, statuses[0])
	assert.Equal(t, Status{Name: "zeta", Type: "*swappable.closingRes", Generation: 1, PublishedAt: at}, statuses[1])

	table := FormatStatus(statuses)
	assert.Contains(t, table, "NAME")
	assert.Contains(t, table, "alpha")
	assert.Contains(t, table, "2024-05-01T12:00:00Z")
}
