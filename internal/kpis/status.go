// Package kpis computes per-user performance metrics, scores and leaderboards
// from raw order, shipment and performance rows. Every function is pure and
// best-effort: empty input or missing columns yield zero values, never errors.
package kpis

import "strings"

const unknownStatus = "unknown"

// NormalizeStatus lower-cases and trims a status and folds '_' and '-' into
// spaces. Blank input maps to "unknown".
func NormalizeStatus(s string) string {
	out := strings.NewReplacer("_", " ", "-", " ").Replace(strings.ToLower(s))
	out = strings.TrimSpace(out)
	if out == "" {
		return unknownStatus
	}
	return out
}

// NormalizeStatusValue is NormalizeStatus for a cell that may be absent.
func NormalizeStatusValue(v string, present bool) string {
	if !present {
		return unknownStatus
	}
	return NormalizeStatus(v)
}

type statusBucket int

const (
	bucketOther statusBucket = iota
	bucketDelivered
	bucketReturned
	bucketCancelled
	bucketInTransit
)

var statusBuckets = map[string]statusBucket{
	"delivered": bucketDelivered,
	"complete":  bucketDelivered,
	"completed": bucketDelivered,

	"return":   bucketReturned,
	"returned": bucketReturned,
	"rto":      bucketReturned,
	"refunded": bucketReturned,
	"refund":   bucketReturned,

	"cancelled": bucketCancelled,
	"canceled":  bucketCancelled,
	"cancel":    bucketCancelled,

	"shipped":          bucketInTransit,
	"in transit":       bucketInTransit,
	"out for delivery": bucketInTransit,
	"dispatched":       bucketInTransit,
	"transit":          bucketInTransit,
}

func classify(status string, present bool) statusBucket {
	return statusBuckets[NormalizeStatusValue(status, present)]
}
