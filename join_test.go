package tpool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingJoiner struct{ joins atomic.Int64 }

func (j *countingJoiner) Join() { j.joins.Add(1) }

func TestScopedJoin(t *testing.T) {
	tests := []struct {
		name  string
		use   func(sj *ScopedJoin[*countingJoiner])
		joins int64
	}{
		{"implicit at scope exit", func(sj *ScopedJoin[*countingJoiner]) {}, 1},
		{"explicit join then scope exit", func(sj *ScopedJoin[*countingJoiner]) { sj.Join(); sj.Join() }, 1},
		{"disarmed", func(sj *ScopedJoin[*countingJoiner]) { sj.Disarm() }, 0},
		{"joined then disarmed", func(sj *ScopedJoin[*countingJoiner]) { sj.Join(); sj.Disarm() }, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &countingJoiner{}
			func() {
				sj := NewScopedJoin(target)
				defer sj.Close()
				require.Same(t, target, sj.Target())
				tt.use(sj)
			}()
			require.Equal(t, tt.joins, target.joins.Load())
		})
	}
}

func TestScopedJoin_DrainsWorkItem(t *testing.T) {
	tp := newTestPool(t)
	var ran atomic.Int64
	w, err := tp.NewWorkItem(func(*CallbackInstance) { ran.Add(1) })
	require.NoError(t, err)
	defer w.Close()

	func() {
		sj := NewScopedJoin(w)
		defer sj.Close()
		for i := 0; i < 10; i++ {
			require.NoError(t, w.Post())
		}
	}()
	require.EqualValues(t, 10, ran.Load())
}
