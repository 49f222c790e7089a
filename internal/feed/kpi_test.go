package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestComputeKpisEmptyFeed(t *testing.T) {
	c := classify.New(classify.DefaultThresholds())
	snap := ComputeKpis(nil, c, time.Now())

	assert.Equal(t, 0, snap.TotalCount)
	assert.Equal(t, 0.0, snap.FraudRate, "fraud rate is defined as 0 on an empty feed")
	assert.Equal(t, 0.0, snap.AverageTransaction)
	assert.Equal(t, 0.0, snap.AverageFraudAge)
}

func TestComputeKpisConsistency(t *testing.T) {
	c := classify.New(classify.DefaultThresholds())
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	txns := []model.Transaction{
		{ID: "1", Amount: 600},                             // FRAUD via amount
		{ID: "2", Amount: 20, FraudSignal: floatPtr(0.9)},  // FRAUD via signal
		{ID: "3", Amount: 50, Category: "gambling"},        // ALERT
		{ID: "4", Amount: 30},                              // LEGITIMATE
		{ID: "5", Amount: 10, FraudSignal: floatPtr(0.01)}, // LEGITIMATE
	}

	snap := ComputeKpis(txns, c, now)

	assert.Equal(t, 5, snap.TotalCount)
	assert.Equal(t, 2, snap.FraudCount)
	assert.Equal(t, 1, snap.AlertCount)
	assert.InDelta(t, 620.0, snap.FraudValue, 1e-9)
	assert.InDelta(t, 40.0, snap.FraudRate, 1e-9)
	assert.InDelta(t, 710.0, snap.TotalValue, 1e-9)
	assert.InDelta(t, 142.0, snap.AverageTransaction, 1e-9)
}

func TestComputeKpisAverageFraudAge(t *testing.T) {
	c := classify.New(classify.DefaultThresholds())
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	dob := func(year int) time.Time {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	txns := []model.Transaction{
		{ID: "1", Amount: 600, Customer: model.Customer{DateOfBirth: dob(1985)}}, // age 40
		{ID: "2", Amount: 700, Customer: model.Customer{DateOfBirth: dob(1995)}}, // age 30
		{ID: "3", Amount: 800}, // unknown dob, excluded
		{ID: "4", Amount: 10, Customer: model.Customer{DateOfBirth: dob(1940)}}, // legitimate, excluded
	}

	snap := ComputeKpis(txns, c, now)
	assert.Equal(t, 3, snap.FraudCount)
	assert.InDelta(t, 35.0, snap.AverageFraudAge, 1e-9, "unknown ages are no data, not zero")
}

func TestComputeKpisReflectsThresholdChanges(t *testing.T) {
	// Same records, different thresholds: status is derived, never stored.
	txns := []model.Transaction{{ID: "1", Amount: 400}}
	now := time.Now()

	lax := classify.New(classify.DefaultThresholds())
	assert.Equal(t, 0, ComputeKpis(txns, lax, now).FraudCount)

	strictT := classify.DefaultThresholds()
	strictT.FraudAmount = 300
	strict := classify.New(strictT)
	assert.Equal(t, 1, ComputeKpis(txns, strict, now).FraudCount)
}
