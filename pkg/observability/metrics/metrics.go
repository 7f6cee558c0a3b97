package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

var (
	assessmentsTotal      atomic.Int64
	emptyPredictions      atomic.Int64
	reportsPersisted      atomic.Int64
	persistenceFailures   atomic.Int64
	statusChanges         atomic.Int64
	catalogCacheHits      atomic.Int64
	catalogCacheMisses    atomic.Int64
	skippedSymptomsTotal  atomic.Int64
	eventsPublishFailures atomic.Int64
)

func ObserveAssessment(predictions int) {
	assessmentsTotal.Add(1)
	if predictions == 0 {
		emptyPredictions.Add(1)
	}
}

func ObserveReportPersisted() { reportsPersisted.Add(1) }

func ObservePersistenceFailure() { persistenceFailures.Add(1) }

func ObserveStatusChange() { statusChanges.Add(1) }

func ObserveCatalogCache(hit bool) {
	if hit {
		catalogCacheHits.Add(1)
		return
	}
	catalogCacheMisses.Add(1)
}

func ObserveSkippedSymptoms(n int) {
	if n > 0 {
		skippedSymptomsTotal.Add(int64(n))
	}
}

func ObservePublishFailure() { eventsPublishFailures.Add(1) }

type metric struct {
	name  string
	help  string
	value *atomic.Int64
}

var registry = []metric{
	{"healthpredictor_assessments_total", "Number of assessments evaluated.", &assessmentsTotal},
	{"healthpredictor_assessments_empty_predictions_total", "Number of assessments that produced no predicted condition.", &emptyPredictions},
	{"healthpredictor_reports_persisted_total", "Number of reports written to the store.", &reportsPersisted},
	{"healthpredictor_reports_persistence_failures_total", "Number of report writes that failed.", &persistenceFailures},
	{"healthpredictor_reports_status_changes_total", "Number of report status transitions applied.", &statusChanges},
	{"healthpredictor_catalog_cache_hits_total", "Number of catalog snapshots served from Redis.", &catalogCacheHits},
	{"healthpredictor_catalog_cache_misses_total", "Number of catalog snapshots loaded from the database.", &catalogCacheMisses},
	{"healthpredictor_skipped_symptoms_total", "Number of submitted symptom ids missing from the catalog.", &skippedSymptomsTotal},
	{"healthpredictor_event_publish_failures_total", "Number of report events that could not be published.", &eventsPublishFailures},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	write(w)
}

func write(w io.Writer) {
	for _, m := range registry {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", m.name)
		fmt.Fprintf(w, "%s %d\n", m.name, m.value.Load())
	}
}
