package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_AdjacentAccepted(t *testing.T) {
	got, err := Transition(StatusPaid, StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got)
}

func TestTransition_SkippingStageRejected(t *testing.T) {
	got, err := Transition(StatusPaid, StatusShipped)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatusPaid, itErr.From)
	assert.Equal(t, StatusShipped, itErr.To)
	assert.Equal(t, StatusPaid, got)
}

func TestTransition_HappyPathWalk(t *testing.T) {
	path := []Status{
		StatusPendingPayment,
		StatusPaid,
		StatusProcessing,
		StatusShipped,
		StatusInTransit,
		StatusOutForDelivery,
		StatusDelivered,
		StatusReturnRequested,
		StatusReturned,
		StatusRefunded,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]),
			"%s -> %s should be legal", path[i], path[i+1])
	}
}

func TestTransition_RefundedIsTerminal(t *testing.T) {
	for _, to := range []Status{
		StatusPendingPayment, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned,
	} {
		assert.False(t, CanTransition(StatusRefunded, to), "refunded -> %s", to)
	}
	assert.True(t, StatusRefunded.IsTerminal())
	assert.True(t, StatusPartiallyRefunded.IsTerminal())
	assert.False(t, StatusPendingPayment.IsTerminal())
}

func TestTransition_ReturnRequestedCanRelease(t *testing.T) {
	assert.True(t, CanTransition(StatusReturnRequested, StatusDelivered))
	assert.True(t, CanTransition(StatusReturnRequested, StatusReturned))
	assert.False(t, CanTransition(StatusReturnRequested, StatusCancelled))
}

func TestTransition_UnknownStatusHasNoEdges(t *testing.T) {
	_, err := Transition(Status("bogus"), StatusPaid)
	require.Error(t, err)
}
