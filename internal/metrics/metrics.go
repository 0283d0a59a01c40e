package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadOutcomes считает завершённые загрузки по последнему достигнутому
	// состоянию и коду ошибки ("" для успешных)
	UploadOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierdrive_upload_outcomes_total",
		Help: "Uploads by the last state reached and the error code",
	}, []string{"state", "code"})

	UploadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tierdrive_uploaded_bytes_total",
		Help: "Bytes of committed uploads",
	})

	// BlobCompensations считает удаления объектов после отката транзакции загрузки
	BlobCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierdrive_blob_compensations_total",
		Help: "Compensating blob deletes issued after an aborted upload",
	}, []string{"result"})

	FileDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierdrive_file_deletes_total",
		Help: "File deletions by result",
	}, []string{"result"})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tierdrive_quota_reconcile_total",
		Help: "Per-user quota recalculations by result",
	}, []string{"result"})

	ReconcileRuntime = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "tierdrive_quota_reconcile_seconds",
		Help: "Elapsed time of a full quota reconciliation pass",
	})
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Result переводит ошибку в значение метки result
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
