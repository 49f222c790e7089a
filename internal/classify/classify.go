// Package classify derives a fraud status for normalized transactions.
//
// All thresholds live in a single Thresholds value so every consumer (feed,
// aggregator, renderer) labels a transaction identically; nothing here caches
// a status on the record.
package classify

import (
	"strings"

	"github.com/andreiluca/fraudwatch/internal/model"
)

// Thresholds holds every tunable the classifier consults.
type Thresholds struct {
	OnlineShoppingCategory string
	SuspiciousCategories   []string
	FraudProbability       float64
	AlertProbability       float64
	FraudAmount            float64
	OnlineShoppingAmount   float64
}

// DefaultThresholds returns the stock rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FraudProbability:       0.15,
		AlertProbability:       0.10,
		FraudAmount:            500,
		SuspiciousCategories:   []string{"gambling", "cash_advance"},
		OnlineShoppingCategory: "shopping_net",
		OnlineShoppingAmount:   300,
	}
}

// Classifier labels transactions according to a fixed rule set. The zero
// value is not usable; construct with New.
type Classifier struct {
	suspicious map[string]struct{}
	thresholds Thresholds
}

// New creates a classifier with the given thresholds.
func New(t Thresholds) *Classifier {
	c := &Classifier{
		thresholds: t,
		suspicious: make(map[string]struct{}, len(t.SuspiciousCategories)),
	}
	for _, cat := range t.SuspiciousCategories {
		c.suspicious[strings.ToLower(cat)] = struct{}{}
	}
	return c
}

// Classify returns the status of a transaction. An upstream fraud signal,
// when present, takes precedence over every heuristic rule; otherwise the
// heuristics apply in order and the first match wins.
func (c *Classifier) Classify(tx model.Transaction) model.Status {
	if tx.FraudSignal != nil {
		switch p := *tx.FraudSignal; {
		case p >= c.thresholds.FraudProbability:
			return model.StatusFraud
		case p >= c.thresholds.AlertProbability:
			return model.StatusAlert
		default:
			return model.StatusLegitimate
		}
	}

	if tx.Amount > c.thresholds.FraudAmount {
		return model.StatusFraud
	}
	if strings.Contains(strings.ToLower(tx.Merchant), "fraud") {
		return model.StatusFraud
	}

	category := strings.ToLower(tx.Category)
	if _, ok := c.suspicious[category]; ok {
		return model.StatusAlert
	}
	if category == strings.ToLower(c.thresholds.OnlineShoppingCategory) &&
		tx.Amount > c.thresholds.OnlineShoppingAmount {
		return model.StatusAlert
	}

	return model.StatusLegitimate
}
