package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-journal-go/internal/flex"
	"trade-journal-go/internal/models"
)

// MockFlexClient is a mock implementation of the flex.ClientInterface.
type MockFlexClient struct {
	mock.Mock
}

func (m *MockFlexClient) FetchStatement(ctx context.Context) (*flex.Statement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flex.Statement), args.Error(1)
}

func setupSyncer(t *testing.T) (*Syncer, *MockFlexClient) {
	svc := setupService(t)
	mockClient := new(MockFlexClient)
	syncer := NewSyncer(zap.NewNop(), mockClient, svc, 7, time.Hour)
	syncer.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return syncer, mockClient
}

func TestSyncOnce_StoresPendingBatch(t *testing.T) {
	syncer, mockClient := setupSyncer(t)
	mockClient.On("FetchStatement", mock.Anything).
		Return(&flex.Statement{ReferenceCode: "ref-1", Body: tradeLog}, nil).Once()

	batch, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, batch)

	var stored models.ImportBatch
	require.NoError(t, syncer.service.db.First(&stored, batch.ID).Error)
	assert.Equal(t, uint(7), stored.AccountID)
	assert.Equal(t, "ibkr-flex", stored.Source)
	assert.Equal(t, "ref-1", stored.ReferenceCode)
	assert.Equal(t, tradeLog, stored.RawText)
	assert.Equal(t, models.ImportBatchPending, stored.Status)
	assert.True(t, stored.FetchedAt.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))
	mockClient.AssertExpectations(t)
}

func TestSyncOnce_SkipsKnownStatement(t *testing.T) {
	syncer, mockClient := setupSyncer(t)
	// Every Flex request yields a fresh reference code for the same report.
	mockClient.On("FetchStatement", mock.Anything).
		Return(&flex.Statement{ReferenceCode: "ref-1", Body: tradeLog}, nil).Once()
	mockClient.On("FetchStatement", mock.Anything).
		Return(&flex.Statement{ReferenceCode: "ref-2", Body: tradeLog}, nil).Once()
	mockClient.On("FetchStatement", mock.Anything).
		Return(&flex.Statement{ReferenceCode: "ref-3", Body: tradeLog + "STK_TRD|extra\n"}, nil).Once()

	first, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.NotEmpty(t, first.ContentHash)

	batch, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Nil(t, batch)

	changed, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, changed)
	assert.NotEqual(t, first.ContentHash, changed.ContentHash)

	batches, err := syncer.service.ListBatches(context.Background())
	require.NoError(t, err)
	assert.Len(t, batches, 2)
	mockClient.AssertExpectations(t)
}

func TestNewSyncer_Interval(t *testing.T) {
	testCases := []struct {
		name     string
		interval time.Duration
		expected time.Duration
	}{
		{name: "Configured", interval: 15 * time.Minute, expected: 15 * time.Minute},
		{name: "Zero falls back", interval: 0, expected: time.Hour},
		{name: "Negative falls back", interval: -time.Second, expected: time.Hour},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := NewSyncer(zap.NewNop(), new(MockFlexClient), nil, 1, tc.interval)
			assert.Equal(t, tc.expected, syncer.interval)
		})
	}
}

func TestSyncerRun_ZeroIntervalDoesNotPanic(t *testing.T) {
	svc := setupService(t)
	mockClient := new(MockFlexClient)
	syncer := NewSyncer(zap.NewNop(), mockClient, svc, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	mockClient.On("FetchStatement", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled).Once()

	assert.NotPanics(t, func() { syncer.Run(ctx) })
	mockClient.AssertExpectations(t)
}

func TestSyncOnce_FetchError(t *testing.T) {
	syncer, mockClient := setupSyncer(t)
	mockClient.On("FetchStatement", mock.Anything).Return(nil, flex.ErrStatementNotReady).Once()

	_, err := syncer.SyncOnce(context.Background())
	assert.True(t, errors.Is(err, flex.ErrStatementNotReady))

	batches, err := syncer.service.ListBatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestSyncerRun_StopsOnCancel(t *testing.T) {
	syncer, mockClient := setupSyncer(t)
	ctx, cancel := context.WithCancel(context.Background())

	// The first sync fails; Run must log it and keep going until cancelled.
	mockClient.On("FetchStatement", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, errors.New("boom")).Once()

	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("syncer did not stop after cancellation")
	}
	mockClient.AssertExpectations(t)
}
