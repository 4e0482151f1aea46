package http

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/HectorLiceaga/erp-cooperativa/internal/application/dto"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/pkg/logger"
)

var validate = newValidator()

// newValidator usa el nombre del tag json en los errores de campo.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind parsea el cuerpo y lo valida; si falla ya escribió la respuesta 400.
func bind(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(dst); err != nil {
		resp := dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Details = append(resp.Details, dto.ValidationDetail{Field: fe.Field(), Message: validationMessage(fe)})
			}
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	return true, nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "requerido"
	case "datetime":
		return "fecha inválida, se espera " + fe.Param()
	case "oneof":
		return "debe ser uno de: " + fe.Param()
	case "min":
		return "mínimo " + fe.Param()
	case "max":
		return "máximo " + fe.Param()
	default:
		return "valor inválido"
	}
}

// parseDate interpreta YYYY-MM-DD en UTC; vacío devuelve la fecha cero.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dto.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidation("date", "fecha inválida, se espera YYYY-MM-DD")
	}
	return t, nil
}

// writeError traduce la taxonomía de errores de dominio a HTTP.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	resp := dto.ErrorResponse{Message: err.Error()}

	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrSequence):
		status, code = fiber.StatusUnprocessableEntity, "READING_SEQUENCE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConcurrency):
		status, code = fiber.StatusConflict, "CONCURRENCY"
		resp.Retryable = true
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrConfig):
		code = "CONFIGURATION"
	case errors.Is(err, domain.ErrConsistency):
		code = "CONSISTENCY"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	}
	if status >= fiber.StatusInternalServerError {
		// El detalle puede traer texto del driver: queda en el log, no en la respuesta.
		resp.Message = "error interno del servidor"
		if log != nil {
			log.Error().Err(err).Str("code", code).Str("path", c.Path()).Msg("error interno en petición")
		}
	}
	resp.Code = code
	return c.Status(status).JSON(resp)
}
