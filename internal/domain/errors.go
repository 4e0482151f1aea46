package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrValidation   = errors.New("entrada inválida")
	ErrSequence     = errors.New("secuencia de lecturas inválida")
	ErrConfig       = errors.New("configuración faltante")
	ErrConcurrency  = errors.New("conflicto de concurrencia")
	ErrConsistency  = errors.New("inconsistencia contable")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
)

// ValidationError entrada ausente o fuera de rango; el llamador puede corregirla.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Message
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation construye un ValidationError.
func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError entidad referenciada inexistente.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound construye un NotFoundError.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// SequenceError la lectura rompe el orden de período o de valor del medidor.
type SequenceError struct {
	ContractID string
	Reason     string
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("secuencia de lecturas inválida para contrato %s: %s", e.ContractID, e.Reason)
}

func (e *SequenceError) Unwrap() error { return ErrSequence }

// ConfigError falta una parametrización obligatoria (cuenta, precio, tipo de comprobante).
// Es un defecto de despliegue: nunca se reemplaza por un valor por defecto.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuración %s: %s", e.Key, e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfig construye un ConfigError.
func NewConfig(key, message string) error {
	return &ConfigError{Key: key, Message: message}
}

// ConcurrencyError no se obtuvo el lock o la transacción fue abortada por serialización.
type ConcurrencyError struct {
	Resource string
	Err      error
}

func (e *ConcurrencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("conflicto de concurrencia en %s", e.Resource)
	}
	return fmt.Sprintf("conflicto de concurrencia en %s: %v", e.Resource, e.Err)
}

// Unwrap expone tanto el sentinel como la causa original.
func (e *ConcurrencyError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConcurrency}
	}
	return []error{ErrConcurrency, e.Err}
}

// ConsistencyError el asiento no balancea. No debería ocurrir nunca.
type ConsistencyError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("asiento desbalanceado: debe %s, haber %s", e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// IsRetryable indica si la operación puede reintentarse sin cambiar la entrada.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}

// IsFatal indica un defecto de configuración o de invariantes contables.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrConsistency)
}
