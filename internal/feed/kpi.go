package feed

import (
	"time"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/model"
)

// KpiSnapshot is the set of aggregate metrics derived from the retained feed.
// It is recomputed in full on every call; nothing is maintained incrementally.
type KpiSnapshot struct {
	TotalCount         int
	FraudCount         int
	AlertCount         int
	TotalValue         float64
	FraudValue         float64
	FraudRate          float64 // percentage
	AverageTransaction float64
	AverageFraudAge    float64 // years; 0 when no fraud record has a known age
}

// ComputeKpis derives metrics from the given records. The records are
// classified on the fly so threshold changes are reflected immediately.
// Customers without a known date of birth are excluded from the fraud-age
// average rather than counted as age zero.
func ComputeKpis(txns []model.Transaction, classifier *classify.Classifier, now time.Time) KpiSnapshot {
	snap := KpiSnapshot{TotalCount: len(txns)}

	fraudAgeSum := 0
	fraudAgeCount := 0
	for _, tx := range txns {
		snap.TotalValue += tx.Amount
		switch classifier.Classify(tx) {
		case model.StatusFraud:
			snap.FraudCount++
			snap.FraudValue += tx.Amount
			if age := tx.Customer.Age(now); age > 0 {
				fraudAgeSum += age
				fraudAgeCount++
			}
		case model.StatusAlert:
			snap.AlertCount++
		case model.StatusLegitimate:
		}
	}

	if snap.TotalCount > 0 {
		snap.FraudRate = float64(snap.FraudCount) / float64(snap.TotalCount) * 100
		snap.AverageTransaction = snap.TotalValue / float64(snap.TotalCount)
	}
	if fraudAgeCount > 0 {
		snap.AverageFraudAge = float64(fraudAgeSum) / float64(fraudAgeCount)
	}
	return snap
}
