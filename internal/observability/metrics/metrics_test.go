package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultError, Result(errors.New("x")))
}

func TestContadores(t *testing.T) {
	Init()
	Init() // idempotente

	before := testutil.ToFloat64(invoicesFinalized.WithLabelValues(ResultSuccess))
	ObserveFinalize(ResultSuccess, 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(invoicesFinalized.WithLabelValues(ResultSuccess)))

	skipped := testutil.ToFloat64(batchItems.WithLabelValues(OutcomeSkipped))
	AddBatchItems(OutcomeSkipped, 3)
	AddBatchItems(OutcomeSkipped, 0)
	assert.Equal(t, skipped+3, testutil.ToFloat64(batchItems.WithLabelValues(OutcomeSkipped)))

	retries := testutil.ToFloat64(txRetries)
	IncTxRetry()
	assert.Equal(t, retries+1, testutil.ToFloat64(txRetries))
}
