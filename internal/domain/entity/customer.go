package entity

import "time"

// Condiciones frente al IVA del socio.
const (
	TaxStatusRegistered    = "REGISTERED_TAXPAYER" // responsable inscripto
	TaxStatusFinalConsumer = "FINAL_CONSUMER"
	TaxStatusMonotax       = "MONOTAX"
	TaxStatusExempt        = "EXEMPT"
	TaxStatusNotRegistered = "NOT_REGISTERED"
)

// Customer representa al socio titular de uno o más suministros.
type Customer struct {
	ID        string
	Name      string
	TaxID     string // CUIT/CUIL
	TaxStatus string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Supply conexión facturable en un domicilio (suministro).
type Supply struct {
	ID        string
	NIS       string // número de identificación del suministro
	Address   string
	CreatedAt time.Time
}
