package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
)

func TestErrores_SentinelsAccesiblesConErrorsIs(t *testing.T) {
	assert.ErrorIs(t, domain.NewValidation("f", "m"), domain.ErrValidation)
	assert.ErrorIs(t, domain.NewNotFound("lectura", "x"), domain.ErrNotFound)
	assert.ErrorIs(t, &domain.SequenceError{ContractID: "c", Reason: "r"}, domain.ErrSequence)
	assert.ErrorIs(t, domain.NewConfig("k", "m"), domain.ErrConfig)
	assert.ErrorIs(t, &domain.ConsistencyError{}, domain.ErrConsistency)
}

func TestConcurrencyError_ExponeCausaYSentinel(t *testing.T) {
	cause := errors.New("lock timeout")
	err := fmt.Errorf("finalizar: %w", &domain.ConcurrencyError{Resource: "secuencia", Err: cause})

	assert.ErrorIs(t, err, domain.ErrConcurrency)
	assert.ErrorIs(t, err, cause)
	assert.True(t, domain.IsRetryable(err))
	assert.False(t, domain.IsFatal(err))
	assert.Contains(t, err.Error(), "secuencia")
}

func TestIsFatal_ConfigYConsistencia(t *testing.T) {
	assert.True(t, domain.IsFatal(domain.NewConfig("ACCOUNT_RECEIVABLES", "sin cuenta")))
	assert.True(t, domain.IsFatal(&domain.ConsistencyError{}))
	assert.False(t, domain.IsFatal(domain.NewValidation("x", "y")))
	assert.False(t, domain.IsRetryable(domain.NewValidation("x", "y")))
}

func TestValidationError_MensajeConYSinCampo(t *testing.T) {
	assert.Equal(t, "validación: currentValue: requerido", domain.NewValidation("currentValue", "requerido").Error())
	assert.Equal(t, "validación: sin líneas", domain.NewValidation("", "sin líneas").Error())
}
