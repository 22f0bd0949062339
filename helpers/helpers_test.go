package helpers

import (
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldErrors(t *testing.T) {
	t.Parallel()

	assert.NoError(t, FoldErrors(nil))
	assert.NoError(t, FoldErrors([]error{nil, nil}))

	single := errors.NotFoundf("keypad")
	assert.True(t, errors.IsNotFound(FoldErrors([]error{nil, single})))

	err := FoldErrors([]error{fmt.Errorf("lcd"), nil, fmt.Errorf("keypad")})
	require.Error(t, err)
	assert.Equal(t, "lcd\nkeypad", err.Error())
}

func TestDurationDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 60*time.Second, IntSecondDefault(0, 60*time.Second))
	assert.Equal(t, 5*time.Second, IntSecondDefault(5, 60*time.Second))
	assert.Equal(t, 500*time.Millisecond, IntMillisecondDefault(-1, 500*time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, IntMillisecondDefault(20, time.Second))
	assert.Equal(t, 16, IntDefault(0, 16))
	assert.Equal(t, 20, IntDefault(20, 16))
}

func TestFakeClock(t *testing.T) {
	t.Parallel()

	c := NewFakeClock()
	begin := c.Now()
	var hooked time.Duration
	c.OnSleep = func(now time.Time, d time.Duration) { hooked += d }
	c.Sleep(2 * time.Millisecond)
	c.Sleep(500 * time.Microsecond)
	c.Add(time.Second)
	assert.Equal(t, time.Second+2500*time.Microsecond, Since(c, begin))
	slept, n := c.Slept()
	assert.Equal(t, 2500*time.Microsecond, slept)
	assert.Equal(t, 2, n)
	assert.Equal(t, slept, hooked)
}
