package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentsUploadedTotal atomic.Uint64

	extractionStartedTotal   atomic.Uint64
	extractionCompletedTotal atomic.Uint64
	extractionFailedTotal    atomic.Uint64
	extractionRejectedTotal  atomic.Uint64
	extractionRetriesTotal   atomic.Uint64

	documentsVerifiedTotal atomic.Uint64
	documentsRejectedTotal atomic.Uint64

	workerJobsReceivedTotal      atomic.Uint64
	workerJobsCompletedTotal     atomic.Uint64
	workerJobsFailedTotal        atomic.Uint64
	workerJobsUnrecoverableTotal atomic.Uint64

	extractionDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentUploaded counts accepted uploads.
func IncDocumentUploaded() {
	documentsUploadedTotal.Add(1)
}

// IncExtractionStarted increments the started counter.
func IncExtractionStarted() {
	extractionStartedTotal.Add(1)
}

// IncExtractionCompleted increments the completed counter.
func IncExtractionCompleted() {
	extractionCompletedTotal.Add(1)
}

// IncExtractionFailed increments the failed counter.
func IncExtractionFailed() {
	extractionFailedTotal.Add(1)
}

// IncExtractionRejected counts documents the provider could not read.
func IncExtractionRejected() {
	extractionRejectedTotal.Add(1)
}

// IncExtractionRetry counts retried provider attempts.
func IncExtractionRetry() {
	extractionRetriesTotal.Add(1)
}

// IncDecision counts HR decisions by outcome.
func IncDecision(verified bool) {
	if verified {
		documentsVerifiedTotal.Add(1)
		return
	}
	documentsRejectedTotal.Add(1)
}

// IncWorkerJobReceived counts queue messages picked up by a worker.
func IncWorkerJobReceived() {
	workerJobsReceivedTotal.Add(1)
}

// IncWorkerJobCompleted counts messages processed and deleted.
func IncWorkerJobCompleted() {
	workerJobsCompletedTotal.Add(1)
}

// IncWorkerJobFailed counts messages left on the queue for redelivery.
func IncWorkerJobFailed() {
	workerJobsFailedTotal.Add(1)
}

// IncWorkerJobUnrecoverable counts poison messages deleted without processing.
func IncWorkerJobUnrecoverable() {
	workerJobsUnrecoverableTotal.Add(1)
}

// ObserveExtractionDurationMs records an extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "documents_uploaded_total", "Total documents accepted for processing", documentsUploadedTotal.Load())
	writeCounter(&buf, "extraction_started_total", "Total extractions started", extractionStartedTotal.Load())
	writeCounter(&buf, "extraction_completed_total", "Total extractions completed", extractionCompletedTotal.Load())
	writeCounter(&buf, "extraction_failed_total", "Total extractions settled as unavailable", extractionFailedTotal.Load())
	writeCounter(&buf, "extraction_rejected_total", "Total documents the provider could not read", extractionRejectedTotal.Load())
	writeCounter(&buf, "extraction_retries_total", "Total retried extraction attempts", extractionRetriesTotal.Load())
	writeCounter(&buf, "documents_verified_total", "Total documents verified by HR", documentsVerifiedTotal.Load())
	writeCounter(&buf, "documents_rejected_total", "Total documents rejected by HR", documentsRejectedTotal.Load())
	writeCounter(&buf, "worker_jobs_received_total", "Total queue messages received", workerJobsReceivedTotal.Load())
	writeCounter(&buf, "worker_jobs_completed_total", "Total queue messages processed", workerJobsCompletedTotal.Load())
	writeCounter(&buf, "worker_jobs_failed_total", "Total queue messages left for redelivery", workerJobsFailedTotal.Load())
	writeCounter(&buf, "worker_jobs_unrecoverable_total", "Total poison messages deleted", workerJobsUnrecoverableTotal.Load())
	writeHistogram(&buf, "extraction_duration_ms", "Extraction duration in milliseconds", extractionDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe stores value in its smallest bucket; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
