package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opticlinic/opticlinic/internal/accounting"
	jobmetrics "github.com/opticlinic/opticlinic/internal/jobs"
)

type stubChecker struct {
	imbalances []accounting.Imbalance
	err        error
}

func (s stubChecker) CheckIntegrity(context.Context) ([]accounting.Imbalance, error) {
	return s.imbalances, s.err
}

type stubMarker struct {
	n   int64
	err error
}

func (s stubMarker) MarkOverdue(context.Context) (int64, error) { return s.n, s.err }

func TestLedgerIntegrityJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	task := asynq.NewTask(TaskLedgerIntegrity, nil)

	ok := NewLedgerIntegrityJob(stubChecker{}, nil, metrics)
	require.NoError(t, ok.Handle(context.Background(), task))

	bad := NewLedgerIntegrityJob(stubChecker{imbalances: []accounting.Imbalance{{
		TransactionID: uuid.New(),
		Debit:         decimal.NewFromInt(10),
		Credit:        decimal.NewFromInt(9),
	}}}, nil, metrics)
	err := bad.Handle(context.Background(), task)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 unbalanced")

	boom := errors.New("db down")
	broken := NewLedgerIntegrityJob(stubChecker{err: boom}, nil, metrics)
	require.ErrorIs(t, broken.Handle(context.Background(), task), boom)

	var unset *LedgerIntegrityJob
	require.Error(t, unset.Handle(context.Background(), task))
}

func TestInvoiceOverdueJob(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	task := asynq.NewTask(TaskInvoicesMarkOverdue, nil)

	require.NoError(t, NewInvoiceOverdueJob(stubMarker{n: 3}, nil, metrics).Handle(context.Background(), task))

	boom := errors.New("timeout")
	require.ErrorIs(t, NewInvoiceOverdueJob(stubMarker{err: boom}, nil, nil).Handle(context.Background(), task), boom)
	require.Error(t, NewInvoiceOverdueJob(nil, nil, nil).Handle(context.Background(), task))
}

func TestNewTask(t *testing.T) {
	task, err := NewTask(TaskInvoicesMarkOverdue)
	require.NoError(t, err)
	require.Equal(t, TaskInvoicesMarkOverdue, task.Type())

	_, err = NewTask("mail:send")
	require.Error(t, err)

	cron := DefaultCron()
	require.Len(t, cron, 2)
	require.Equal(t, TaskLedgerIntegrity, cron[0].Task.Type())
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var status queueStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, QueueDefault, status.Queue)
	require.Zero(t, status.Pending)
}

type chanSource struct {
	ch  chan int64
	err error
}

func (s chanSource) Subscribe(context.Context) (<-chan int64, error) {
	return s.ch, s.err
}

func TestWatchCacheVersionsExportsLatest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	src := chanSource{ch: make(chan int64, 3)}
	src.ch <- 4
	src.ch <- 5
	close(src.ch)

	require.NoError(t, WatchCacheVersions(context.Background(), src, nil, metrics))
	expected := `
# HELP opticlinic_payments_cache_version Last payments cache version published after a write.
# TYPE opticlinic_payments_cache_version gauge
opticlinic_payments_cache_version 5
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "opticlinic_payments_cache_version"))
}

func TestWatchCacheVersionsSubscribeError(t *testing.T) {
	boom := errors.New("redis down")
	err := WatchCacheVersions(context.Background(), chanSource{err: boom}, nil, nil)
	require.ErrorIs(t, err, boom)
}
