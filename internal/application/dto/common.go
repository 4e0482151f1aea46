package dto

// PageRequest paginación para listados.
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=0,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// DefaultPage aplica valores por defecto si Limit/Offset son cero.
func (p *PageRequest) DefaultPage() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ErrorResponse cuerpo de error HTTP.
// Retryable indica que la misma petición puede reintentarse (conflicto de concurrencia).
type ErrorResponse struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	Retryable bool               `json:"retryable,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail error de validación de un campo del cuerpo.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DateLayout formato de fechas en query strings y cuerpos (YYYY-MM-DD).
const DateLayout = "2006-01-02"
