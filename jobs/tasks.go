package jobs

import (
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every opticlinic task runs on.
	QueueDefault = "default"

	TaskLedgerIntegrity     = "ledger:integrity"
	TaskInvoicesMarkOverdue = "invoices:mark-overdue"
)

// Known lists the task types that can be enqueued by name.
var Known = []string{TaskLedgerIntegrity, TaskInvoicesMarkOverdue}

// NewTask builds a payload-less task for a known type.
func NewTask(name string) (*asynq.Task, error) {
	for _, k := range Known {
		if k == name {
			return asynq.NewTask(name, nil, asynq.Queue(QueueDefault)), nil
		}
	}
	return nil, fmt.Errorf("jobs: unknown task %q", name)
}

// DefaultCron schedules the integrity check hourly and the overdue sweep
// shortly after midnight UTC.
func DefaultCron() []CronRegistration {
	return []CronRegistration{
		{Spec: "0 * * * *", Task: asynq.NewTask(TaskLedgerIntegrity, nil)},
		{Spec: "30 0 * * *", Task: asynq.NewTask(TaskInvoicesMarkOverdue, nil)},
	}
}
