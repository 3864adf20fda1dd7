package handler_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shelfbridge/loansync-service/internal/handler"
)

func TestConsumer_SetupSurvivesRebalance(t *testing.T) {
	t.Parallel()
	consumer := handler.NewConsumer(nil, zap.NewExample())

	require.NoError(t, consumer.Setup(nil))
	select {
	case <-consumer.Ready():
	default:
		t.Fatal("ready channel not closed after first session")
	}

	// a rebalance starts a new session and calls Setup again
	require.NotPanics(t, func() {
		require.NoError(t, consumer.Setup(nil))
	})
}
