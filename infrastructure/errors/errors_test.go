package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFault_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Fault
		want string
	}{
		{
			name: "fault without underlying error",
			err:  New(KindConfig, "test message"),
			want: "[ConfigFault] test message",
		},
		{
			name: "fault with underlying error",
			err:  Wrap(KindStorage, "test message", errors.New("underlying")),
			want: "[StorageFault] test message: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestFault_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(KindStorage, "test", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.True(t, errors.Is(err, underlying))
}

func TestFault_WithDetails(t *testing.T) {
	err := New(KindRateLimited, "test").WithDetails("tenant_id", "t1").WithDetails("action", "login")

	assert.Equal(t, "t1", err.Details["tenant_id"])
	assert.Equal(t, "login", err.Details["action"])
}

func TestIsFault_And_As(t *testing.T) {
	wrapped := BreakerOpen("aws.s3")
	err := Transient("wrap", wrapped)

	require.True(t, IsFault(err))
	f := As(err)
	require.NotNil(t, f)
	assert.Equal(t, KindTransient, f.Kind)
}

func TestIs(t *testing.T) {
	err := RateLimited("t1", "api_call")
	assert.True(t, Is(err, KindRateLimited))
	assert.False(t, Is(err, KindBreakerOpen))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, KindConfig, Config("bad config").Kind)
	assert.Equal(t, KindTaskTimeout, TaskTimeout("task-1").Kind)
	assert.Equal(t, KindHash, Hash(errors.New("boom")).Kind)
	assert.Equal(t, KindBusClosed, BusClosed().Kind)
	assert.Equal(t, KindIllegalTransition, IllegalTransition("agent", "RUNNING", "CREATED").Kind)
}
