package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	documentsSentTotal     atomic.Uint64
	documentsSignedTotal   atomic.Uint64
	documentsRejectedTotal atomic.Uint64

	signaturesRecordedTotal atomic.Uint64

	tokensIssuedTotal   atomic.Uint64
	tokensVerifiedTotal atomic.Uint64
	tokensDeniedTotal   atomic.Uint64

	notifyJobsReceivedTotal             atomic.Uint64
	notifyJobsCompletedTotal            atomic.Uint64
	notifyJobsFailedTotal               atomic.Uint64
	notifyJobsDeletedUnrecoverableTotal atomic.Uint64

	assemblyDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncDocumentsSent increments the sent counter.
func IncDocumentsSent() {
	documentsSentTotal.Add(1)
}

// IncDocumentsSigned increments the completed counter.
func IncDocumentsSigned() {
	documentsSignedTotal.Add(1)
}

// IncDocumentsRejected increments the rejected counter.
func IncDocumentsRejected() {
	documentsRejectedTotal.Add(1)
}

// IncSignaturesRecorded increments the recorded-signature counter.
func IncSignaturesRecorded() {
	signaturesRecordedTotal.Add(1)
}

// IncTokensIssued increments the issued-token counter.
func IncTokensIssued() {
	tokensIssuedTotal.Add(1)
}

// IncTokensVerified increments the verified-token counter.
func IncTokensVerified() {
	tokensVerifiedTotal.Add(1)
}

// IncTokensDenied increments the denied-token counter.
func IncTokensDenied() {
	tokensDeniedTotal.Add(1)
}

// IncNotifyJobsReceived increments the received notification-job counter.
func IncNotifyJobsReceived() {
	notifyJobsReceivedTotal.Add(1)
}

// IncNotifyJobsCompleted increments the completed notification-job counter.
func IncNotifyJobsCompleted() {
	notifyJobsCompletedTotal.Add(1)
}

// IncNotifyJobsFailed increments the failed notification-job counter.
func IncNotifyJobsFailed() {
	notifyJobsFailedTotal.Add(1)
}

// IncNotifyJobsDeletedUnrecoverable increments the counter of jobs
// dropped because they can never succeed.
func IncNotifyJobsDeletedUnrecoverable() {
	notifyJobsDeletedUnrecoverableTotal.Add(1)
}

// ObserveAssemblyDurationMs records a final-document assembly duration in milliseconds.
func ObserveAssemblyDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	assemblyDuration.Observe(value)
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
	writeCounter(&buf, "documents_sent_total", "Total documents sent for signing", documentsSentTotal.Load())
	writeCounter(&buf, "documents_signed_total", "Total documents fully signed", documentsSignedTotal.Load())
	writeCounter(&buf, "documents_rejected_total", "Total documents rejected", documentsRejectedTotal.Load())
	writeCounter(&buf, "signatures_recorded_total", "Total signatures recorded", signaturesRecordedTotal.Load())
	writeCounter(&buf, "signing_tokens_issued_total", "Total signing tokens issued", tokensIssuedTotal.Load())
	writeCounter(&buf, "signing_tokens_verified_total", "Total signing tokens verified", tokensVerifiedTotal.Load())
	writeCounter(&buf, "signing_tokens_denied_total", "Total signing tokens denied", tokensDeniedTotal.Load())
	writeCounter(&buf, "notify_jobs_received_total", "Total notification jobs received", notifyJobsReceivedTotal.Load())
	writeCounter(&buf, "notify_jobs_completed_total", "Total notification jobs completed", notifyJobsCompletedTotal.Load())
	writeCounter(&buf, "notify_jobs_failed_total", "Total notification jobs failed", notifyJobsFailedTotal.Load())
	writeCounter(&buf, "notify_jobs_deleted_unrecoverable_total", "Total notification jobs dropped as unrecoverable", notifyJobsDeletedUnrecoverableTotal.Load())
	writeHistogram(&buf, "assembly_duration_ms", "Final document assembly duration in milliseconds", assemblyDuration.Snapshot())
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

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
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

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
