package runtime

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/microphp/values"
)

type fakeClock struct {
	now    int64
	slept  time.Duration
}

func (f *fakeClock) MillisSinceEpoch() int64 { return f.now }
func (f *fakeClock) Sleep(d time.Duration)   { f.slept += d; f.now += d.Milliseconds() }

func TestPrintWritesCanonicalFormWithNewline(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(&fakeClock{}, &buf)
	fn, ok := r.Lookup("print")
	require.True(t, ok)
	_, err := fn([]values.Value{values.Int(1), values.StringFromGo("x")})
	require.NoError(t, err)
	assert.Equal(t, "1x\n", buf.String())
}

func TestSleepMsBlocksViaClock(t *testing.T) {
	clock := &fakeClock{}
	r := NewRegistry(clock, &bytes.Buffer{})
	fn, _ := r.Lookup("sleep_ms")
	_, err := fn([]values.Value{values.Int(50)})
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, clock.slept)
}

func TestMillisIsMonotonicNonDecreasing(t *testing.T) {
	clock := &fakeClock{now: 100}
	r := NewRegistry(clock, &bytes.Buffer{})
	fn, _ := r.Lookup("millis")
	v1, _ := fn(nil)
	clock.now += 10
	v2, _ := fn(nil)
	assert.GreaterOrEqual(t, v2.AsInt(), v1.AsInt())
}

func TestRegisterRejectsShadowingCoreBuiltin(t *testing.T) {
	r := NewRegistry(&fakeClock{}, &bytes.Buffer{})
	err := r.Register("print", func(args []values.Value) (values.Value, error) {
		return values.Null(), nil
	})
	assert.ErrorIs(t, err, ErrDuplicateBuiltin)
}

func TestRegisterHostBuiltin(t *testing.T) {
	r := NewRegistry(&fakeClock{}, &bytes.Buffer{})
	err := r.Register("gpio_write", func(args []values.Value) (values.Value, error) {
		return values.Bool(true), nil
	})
	require.NoError(t, err)
	fn, ok := r.Lookup("gpio_write")
	require.True(t, ok)
	v, err := fn(nil)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}
