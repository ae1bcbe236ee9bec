package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply_ThenBeforeResolve(t *testing.T) {
	r := NewReply[int]()
	var got []int
	r.Then(func(v int) { got = append(got, v) }, func(error) { t.Fatal("fail called") })

	assert.True(t, r.Resolve(3))
	assert.False(t, r.Resolve(4))
	assert.False(t, r.Reject(errors.New("late")))
	assert.Equal(t, []int{3}, got)
}

func TestReply_ThenAfterReject(t *testing.T) {
	r := NewReply[string]()
	boom := errors.New("boom")
	require.True(t, r.Reject(boom))

	var got error
	r.Then(func(string) { t.Fatal("ok called") }, func(err error) { got = err })
	assert.Equal(t, boom, got)
}

func TestReply_NilContinuations(t *testing.T) {
	r := NewReply[int]()
	r.Then(nil, nil)
	assert.NotPanics(t, func() { r.Resolve(1) })

	f := NewReply[int]()
	f.Then(nil, nil)
	assert.NotPanics(t, func() { f.Reject(errors.New("x")) })
}

func TestReply_Wait(t *testing.T) {
	r := NewReply[int]()
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Resolve(42)
	}()

	v, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestReply_WaitContext(t *testing.T) {
	r := NewReply[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
