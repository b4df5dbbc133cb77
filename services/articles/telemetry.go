package articles

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("articlesearch.services.articles")
var meter = otel.Meter("articlesearch.services.articles")

var searchCounter, _ = meter.Int64Counter(
	"articlesearch.searches",
	metric.WithDescription("Searches handled, by cache outcome."),
)
var candidateCounter, _ = meter.Int64Counter(
	"articlesearch.candidates",
	metric.WithDescription("Fetched candidates, by reconciliation outcome."),
)

const (
	report_reconcile_candidate = "reconciler.candidate"
	report_reconcile_conflict  = "reconciler.conflict"
	report_reconcile_fetch     = "reconciler.fetch"
	report_reconcile_store     = "reconciler.store"
	report_reconcile_result    = "reconciler.result"

	report_reconcile_inserted    = "reconciler.inserted"
	report_reconcile_incremented = "reconciler.incremented"
	report_reconcile_skipped     = "reconciler.skipped"
)
