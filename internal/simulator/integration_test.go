package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreiluca/fraudwatch/internal/api"
	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/feed"
	"github.com/andreiluca/fraudwatch/internal/model"
	"github.com/andreiluca/fraudwatch/internal/normalize"
	"github.com/andreiluca/fraudwatch/internal/stream"
)

// TestDashboardPipeline runs the full client-side pipeline against the
// simulator: batch fetch, normalization, live subscription, reconciliation,
// and KPI aggregation.
func TestDashboardPipeline(t *testing.T) {
	classifier := classify.New(classify.DefaultThresholds())
	backend := New(classifier, 50)
	ts := httptest.NewServer(backend.Handler())
	defer ts.Close()

	// Seed backend history.
	_, err := backend.Inject(normalize.RawPayload{"transaction_id": "h-1", "amount": 700.0})
	require.NoError(t, err)
	_, err = backend.Inject(normalize.RawPayload{"transaction_id": "h-2", "amount": 25.0})
	require.NoError(t, err)

	// Client side: bounded feed plus live subscription.
	reconciled := feed.New(50)
	live := stream.New(stream.Config{
		URL:            ts.URL + "/api/stream",
		ReconnectDelay: 50 * time.Millisecond,
	}, reconciled)
	require.NoError(t, live.Connect(context.Background()))
	defer live.Disconnect()

	require.Eventually(t, func() bool {
		return live.State() == stream.StateConnected
	}, 2*time.Second, 10*time.Millisecond)

	// A live event lands before the batch fetch resolves.
	_, err = backend.Inject(normalize.RawPayload{"transaction_id": "live-1", "amount": 10.0})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return reconciled.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Now the batch resolves; the pre-arrived live event must survive the
	// merge. The batch includes live-1 itself, which stays a single record.
	client := api.NewClient(ts.URL)
	payloads, err := client.GetTransactions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, payloads, 3)

	records := make([]model.Transaction, len(payloads))
	for i, p := range payloads {
		records[i] = normalize.Transaction(p)
	}
	_, err = reconciled.LoadInitialBatch(records)
	require.NoError(t, err)
	assert.Equal(t, 3, reconciled.Len())

	// More live traffic after initialization.
	_, err = backend.Inject(normalize.RawPayload{"transaction_id": "live-2", "amount": 900.0})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return reconciled.Len() == 4
	}, 2*time.Second, 10*time.Millisecond)

	snap := feed.ComputeKpis(reconciled.Snapshot(), classifier, time.Now())
	assert.Equal(t, 4, snap.TotalCount)
	assert.Equal(t, 2, snap.FraudCount, "h-1 and live-2 exceed the amount threshold")
	assert.InDelta(t, 1600.0, snap.FraudValue, 1e-9)
	assert.InDelta(t, 50.0, snap.FraudRate, 1e-9)
}
