// Package service defines the interfaces connecting the dashboard's
// components: where transactions come from and where reconciled records go.
package service

import (
	"context"

	"github.com/andreiluca/fraudwatch/internal/model"
	"github.com/andreiluca/fraudwatch/internal/normalize"
)

// BatchSource fetches the one-shot historical batch from the backend.
type BatchSource interface {
	GetTransactions(ctx context.Context, limit int) ([]normalize.RawPayload, error)
}

// Submitter posts a new transaction to the backend for fraud detection.
// The echoed record arrives back through the live stream.
type Submitter interface {
	SubmitTransaction(ctx context.Context, payload normalize.RawPayload) (normalize.RawPayload, error)
}

// Sink receives normalized records from the live stream. Implemented by the
// reconciled feed.
type Sink interface {
	Ingest(tx model.Transaction) (bool, error)
}
