package entity

import "time"

// Estados de una corrida de facturación masiva.
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// BillingRun registro de una ejecución del proceso masivo.
type BillingRun struct {
	ID            string
	Period        time.Time
	DueDate       time.Time
	PointOfSaleID string
	Status        string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Succeeded     int
	Skipped       int
	Failed        int
	Chunks        int
	FailedChunks  int
	LastError     string
}
