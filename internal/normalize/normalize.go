// Package normalize maps heterogeneous producer payloads into the canonical
// transaction record. Every producer nests and names fields differently, so
// resolution is tiered: a preferred top-level key, alternate top-level keys,
// then the same keys under the payload's original_payload and raw_data
// references. Invalid values coerce to safe defaults, never to errors.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andreiluca/fraudwatch/internal/model"
)

// RawPayload is a producer-defined transaction payload as decoded from JSON.
// No shape is guaranteed; arbitrary and partially absent fields are expected.
type RawPayload = map[string]any

// Nested objects the tiered lookup descends into, in order.
var nestedRefs = []string{"original_payload", "raw_data"}

// Transaction converts a raw payload into a normalized record. The result
// always carries a transaction id: one is generated from the producer number,
// the timestamp and a random suffix when the payload supplies none.
func Transaction(payload RawPayload) model.Transaction {
	p := unwrap(payload)

	ts := resolveTimestamp(p)
	transNum := stringField(p, "trans_num")

	tx := model.Transaction{
		ID:        resolveID(p, transNum, ts),
		TransNum:  transNum,
		Amount:    resolveAmount(p),
		Timestamp: ts,
		Merchant:  stringField(p, "merchant", "merchant_name"),
		Category:  stringField(p, "category"),
		Location: model.Location{
			City:      stringField(p, "city"),
			State:     stringField(p, "state"),
			Latitude:  coordinate(p, -90, 90, "lat", "merch_lat"),
			Longitude: coordinate(p, -180, 180, "long", "merch_long"),
		},
		Customer: model.Customer{
			FirstName:   stringField(p, "first", "first_name"),
			LastName:    stringField(p, "last", "last_name"),
			Gender:      stringField(p, "gender"),
			DateOfBirth: resolveDOB(p),
		},
		FraudSignal: resolveFraudSignal(p),
	}

	return tx
}

// unwrap strips one level of data envelope. Producers that wrap the actual
// record under a "data" key get unwrapped exactly once.
func unwrap(p RawPayload) RawPayload {
	if inner, ok := p["data"].(map[string]any); ok {
		return inner
	}
	return p
}

// lookup returns the first present value for any of the keys, trying the top
// level first and then each nested reference object.
func lookup(p RawPayload, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v, true
		}
	}
	for _, ref := range nestedRefs {
		nested, ok := p[ref].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range keys {
			if v, ok := nested[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func stringField(p RawPayload, keys ...string) string {
	v, ok := lookup(p, keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// toFloat parses a numeric value permissively: JSON numbers and numeric
// strings both count; everything else is absent.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func resolveAmount(p RawPayload) float64 {
	v, ok := lookup(p, "amount", "amt")
	if !ok {
		return 0
	}
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// coordinate resolves a coordinate through the full tier chain and rejects
// out-of-range values as absent rather than failing.
func coordinate(p RawPayload, minVal, maxVal float64, keys ...string) *float64 {
	v, ok := lookup(p, keys...)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || f < minVal || f > maxVal {
		return nil
	}
	return &f
}

// Accepted timestamp layouts, most specific first.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// resolveTimestamp picks the transaction time from the candidate fields in
// precedence order, falling back to the current time when every candidate is
// absent or unparsable.
func resolveTimestamp(p RawPayload) time.Time {
	for _, key := range []string{"trans_date_trans_time", "timestamp", "time"} {
		v, ok := lookup(p, key)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	if v, ok := lookup(p, "unix_time"); ok {
		if epoch, ok := toFloat(v); ok && epoch > 0 {
			return time.Unix(int64(epoch), 0).UTC()
		}
	}
	return time.Now().UTC()
}

func resolveDOB(p RawPayload) time.Time {
	v, ok := lookup(p, "dob", "date_of_birth")
	if !ok {
		return time.Time{}
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// resolveFraudSignal reads the upstream detector probability, clamped to
// [0,1]. A bare is_fraud flag (0/1) from older producers maps onto the same
// scale so one classification path handles both.
func resolveFraudSignal(p RawPayload) *float64 {
	v, ok := lookup(p, "fraud_probability", "probability", "is_fraud")
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}

// resolveID returns the payload's own identifier when present, otherwise a
// generated one. Generated ids are unique but not deterministic: the same
// logical transaction re-ingested without a stable id produces two records,
// so producers needing idempotent re-ingestion must supply an id upstream.
func resolveID(p RawPayload, transNum string, ts time.Time) string {
	if id := stringField(p, "transaction_id", "id"); id != "" {
		return id
	}
	if transNum == "" {
		transNum = "unknown"
	}
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%d-%s", transNum, ts.UnixMilli(), suffix)
}
