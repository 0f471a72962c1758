//go:build unix

package tptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimespec_RoundTrip(t *testing.T) {
	now := time.Now()

	ts, err := ToTimespec(now)
	require.NoError(t, err)
	require.True(t, FromTimespec(ts).Equal(now))
}

func TestDurationToTimespec(t *testing.T) {
	ts := DurationToTimespec(2*time.Second + 5*time.Nanosecond)
	sec, nsec := ts.Unix()
	require.EqualValues(t, 2, sec)
	require.EqualValues(t, 5, nsec)
}
