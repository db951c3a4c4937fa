package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/where"
)

// queuedReport encapsulates a single undelivered report for deferred
// reconciliation.
type queuedReport struct {
	Timestamp int64  `json:"timestamp"`
	Path      string `json:"path"`
	Payload   report `json:"payload"`
}

// queueFailure persists a failed report to a local JSON-log for deferred
// reconciliation.
func queueFailure(path string, payload report) error {
	f, err := os.OpenFile(where.ReportQueue(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	queued := queuedReport{
		Timestamp: time.Now().Unix(),
		Path:      path,
		Payload:   payload,
	}

	// Stream JSON directly to the disk buffer.
	encoder := json.NewEncoder(f)
	return encoder.Encode(queued)
}

// ReconcileFailures initializes an asynchronous background process to
// deliver previously failed reports.
func ReconcileFailures() {
	go func() {
		path := where.ReportQueue()
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return
		}

		var queued []queuedReport
		decoder := json.NewDecoder(bytes.NewReader(content))
		for decoder.More() {
			var q queuedReport
			if err := decoder.Decode(&q); err == nil {
				queued = append(queued, q)
			}
		}

		if len(queued) == 0 {
			return
		}

		successCount := 0
		for i, q := range queued {
			// Incremental delay with randomized jitter to manage request throttling.
			backoff := time.Duration((1<<i)*100)*time.Millisecond + time.Duration(rand.Intn(100))*time.Millisecond
			time.Sleep(backoff)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := post(ctx, q.Path, q.Payload)
			cancel()
			if err == nil {
				successCount++
			}
		}

		// Truncate the failure log only once every report went through.
		if successCount == len(queued) {
			_ = os.Truncate(path, 0)
		}
	}()
}
