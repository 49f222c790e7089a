// Package simulator implements the built-in demo backend: a gin server that
// serves a transaction history, accepts submissions, and broadcasts live
// events over SSE. It gives the dashboard a real peer to talk to without an
// external fraud-detection deployment.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/andreiluca/fraudwatch/internal/classify"
	"github.com/andreiluca/fraudwatch/internal/feed"
	"github.com/andreiluca/fraudwatch/internal/model"
	"github.com/andreiluca/fraudwatch/internal/normalize"
	"github.com/andreiluca/fraudwatch/internal/stream"
)

// Server is the simulated fraud-detection backend. Its recent-transaction
// store is the same bounded feed the dashboard uses client-side.
type Server struct {
	classifier *classify.Classifier
	history    *feed.Feed
	hub        *hub
	engine     *gin.Engine
}

// New creates a simulator retaining the given number of transactions.
func New(classifier *classify.Classifier, retention int) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		classifier: classifier,
		history:    feed.New(retention),
		hub:        newHub(),
		engine:     gin.New(),
	}
	s.engine.Use(gin.Recovery())

	s.engine.GET("/api/transactions", s.getTransactions)
	s.engine.POST("/api/transactions", s.postTransaction)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/stream", s.streamEvents)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Inject normalizes a payload, stores it, and broadcasts it to stream
// subscribers. Used by both the generator and the submission endpoint.
func (s *Server) Inject(payload normalize.RawPayload) (model.Transaction, error) {
	tx := normalize.Transaction(payload)
	added, err := s.history.Ingest(tx)
	if err != nil {
		return model.Transaction{}, err
	}
	if !added {
		return tx, nil
	}

	body, err := json.Marshal(map[string]any{
		"type": stream.EventNewTransaction,
		"data": s.wirePayload(tx),
	})
	if err != nil {
		return model.Transaction{}, err
	}
	s.hub.broadcast(body)
	return tx, nil
}

// Generate emits one synthetic transaction per interval until the context is
// canceled.
func (s *Server) Generate(ctx context.Context, gen *Generator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Inject(gen.Next()); err != nil {
				slog.Warn("Failed to inject generated transaction", "error", err)
			}
		}
	}
}

func (s *Server) getTransactions(c *gin.Context) {
	txns := s.history.Snapshot()

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if limit < len(txns) {
			txns = txns[len(txns)-limit:]
		}
	}

	out := make([]gin.H, len(txns))
	for i, tx := range txns {
		out[i] = s.wirePayload(tx)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) postTransaction(c *gin.Context) {
	var payload normalize.RawPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}

	tx, err := s.Inject(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store transaction"})
		return
	}

	c.JSON(http.StatusCreated, s.wirePayload(tx))
}

func (s *Server) getStats(c *gin.Context) {
	snap := feed.ComputeKpis(s.history.Snapshot(), s.classifier, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"total_count":         snap.TotalCount,
		"fraud_count":         snap.FraudCount,
		"alert_count":         snap.AlertCount,
		"total_value":         snap.TotalValue,
		"fraud_value":         snap.FraudValue,
		"fraud_rate":          snap.FraudRate,
		"average_transaction": snap.AverageTransaction,
		"average_fraud_age":   snap.AverageFraudAge,
	})
}

// streamEvents holds the connection open and relays broadcast bodies as SSE
// frames until the subscriber goes away.
func (s *Server) streamEvents(c *gin.Context) {
	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case body := <-ch:
			if err := sse.Encode(c.Writer, sse.Event{Data: string(body)}); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

// wirePayload renders a stored transaction in the producer payload shape the
// dashboard normalizes, including the derived status for casual inspection.
func (s *Server) wirePayload(tx model.Transaction) gin.H {
	payload := gin.H{
		"transaction_id":        tx.ID,
		"trans_num":             tx.TransNum,
		"amount":                tx.Amount,
		"trans_date_trans_time": tx.Timestamp.Format("2006-01-02 15:04:05"),
		"merchant":              tx.Merchant,
		"category":              tx.Category,
		"city":                  tx.Location.City,
		"state":                 tx.Location.State,
		"status":                string(s.classifier.Classify(tx)),
	}
	if tx.Location.Latitude != nil {
		payload["lat"] = *tx.Location.Latitude
	}
	if tx.Location.Longitude != nil {
		payload["long"] = *tx.Location.Longitude
	}
	if tx.Customer.FirstName != "" {
		payload["first"] = tx.Customer.FirstName
	}
	if tx.Customer.LastName != "" {
		payload["last"] = tx.Customer.LastName
	}
	if tx.Customer.Gender != "" {
		payload["gender"] = tx.Customer.Gender
	}
	if !tx.Customer.DateOfBirth.IsZero() {
		payload["dob"] = tx.Customer.DateOfBirth.Format("2006-01-02")
	}
	if tx.FraudSignal != nil {
		payload["fraud_probability"] = *tx.FraudSignal
	}
	return payload
}
