package billing

import "github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"

// DocumentTypeCode devuelve el código AFIP del comprobante según la condición de IVA:
// responsable inscripto recibe Factura A, el resto Factura B.
func DocumentTypeCode(taxStatus string) string {
	if taxStatus == entity.TaxStatusRegistered {
		return entity.AfipCodeInvoiceA
	}
	return entity.AfipCodeInvoiceB
}
