package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueDepositScan charges members who missed the monthly deposit threshold.
	TaskOverdueDepositScan = "overdue:deposit_scan"
	// TaskOverdueLoanScan charges loans past their repayment term.
	TaskOverdueLoanScan = "overdue:loan_scan"
	// TaskSummaryWarmup precomputes the yearly summary reports.
	TaskSummaryWarmup = "summary:warmup"
)

// OverdueScanPayload pins a scan to a point in time. A zero AsOf means now.
type OverdueScanPayload struct {
	AsOf time.Time `json:"as_of,omitempty"`
}

// SummaryWarmupPayload selects the year to warm. Zero warms the current and
// previous year.
type SummaryWarmupPayload struct {
	Year int `json:"year,omitempty"`
}

// NewOverdueScanTask builds a deposit or loan scan task.
func NewOverdueScanTask(taskType string, payload OverdueScanPayload) (*asynq.Task, error) {
	if taskType != TaskOverdueDepositScan && taskType != TaskOverdueLoanScan {
		return nil, fmt.Errorf("jobs: %q is not an overdue scan", taskType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewSummaryWarmupTask builds a summary warmup task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data, asynq.Queue(QueueDefault)), nil
}

// NewTask resolves a task type name into a task with an empty payload.
func NewTask(taskType string) (*asynq.Task, error) {
	switch taskType {
	case TaskOverdueDepositScan, TaskOverdueLoanScan:
		return NewOverdueScanTask(taskType, OverdueScanPayload{})
	case TaskSummaryWarmup:
		return NewSummaryWarmupTask(SummaryWarmupPayload{})
	default:
		return nil, fmt.Errorf("jobs: unknown task %q", taskType)
	}
}
