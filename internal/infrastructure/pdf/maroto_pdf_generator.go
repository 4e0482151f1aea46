// Package pdf implementa la representación impresa de la factura de servicios.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Cooperativa + CUIT │ Letra │ N° PPPP-NNNNNNNN + Fecha │
//	│  ─────────────────────────────────────────────────────────  │
//	│  SOCIO: Nombre + CUIT + Condición IVA                        │
//	│  SUMINISTRO: NIS + Domicilio + Período + Vencimiento         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Concepto | Cantidad | P.Unit | Importe               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Neto gravado / IVA / TOTAL A PAGAR                 │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/HectorLiceaga/erp-cooperativa/internal/application/billing"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

var _ appbilling.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 92, Blue: 56}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var taxStatusLabels = map[string]string{
	entity.TaxStatusRegistered:    "IVA Responsable Inscripto",
	entity.TaxStatusFinalConsumer: "Consumidor Final",
	entity.TaxStatusMonotax:       "Responsable Monotributo",
	entity.TaxStatusExempt:        "IVA Sujeto Exento",
	entity.TaxStatusNotRegistered: "No Responsable",
}

// Issuer datos de la cooperativa emisora impresos en la cabecera.
type Issuer struct {
	Name    string
	TaxID   string
	Address string
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	issuer Issuer
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator(issuer Issuer) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{issuer: issuer}
}

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, doc appbilling.InvoiceDocument) ([]byte, error) {
	if doc.Invoice == nil || doc.Invoice.DocumentNumber == nil {
		return nil, fmt.Errorf("pdf: la factura no está numerada")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura de servicios", true).
		WithAuthor(g.issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.issuer, doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(customerRow(doc.Customer))
	m.AddRows(supplyRow(doc.Supply, doc.Invoice))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(doc.Invoice.Lines)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc.Invoice))
	m.AddRows(footerRow(doc.Invoice))

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: cooperativa (izq), recuadro con la letra (centro) y número + fecha (der).
func headerRow(issuer Issuer, doc appbilling.InvoiceDocument) core.Row {
	number := entity.FormatNumber(doc.PointOfSale.Number, *doc.Invoice.DocumentNumber)

	return row.New(22).Add(
		col.New(5).Add(
			text.New(issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("CUIT: "+nonEmpty(issuer.TaxID, "-"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
			text.New(nonEmpty(issuer.Address, ""), props.Text{
				Size: 8, Top: 14, Color: colorGray,
			}),
		),
		col.New(2).Add(
			text.New(doc.DocumentType.Letter, props.Text{
				Style: fontstyle.Bold, Size: 26, Align: align.Center, Top: 2,
			}),
			text.New("Cód. "+doc.DocumentType.AfipCode, props.Text{
				Size: 7, Align: align.Center, Top: 15, Color: colorGray,
			}),
		).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: colorPrimary}),
		col.New(5).Add(
			text.New(strings.ToUpper(doc.DocumentType.Description), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("N° "+number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 8,
			}),
			text.New("Fecha de emisión: "+doc.Invoice.IssueDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 15, Color: colorGray,
			}),
		),
	)
}

// customerRow: datos fiscales del socio.
func customerRow(c *entity.Customer) core.Row {
	status := taxStatusLabels[c.TaxStatus]
	if status == "" {
		status = c.TaxStatus
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("SOCIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(c.Name, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("CUIT/CUIL: %s   |   %s", nonEmpty(c.TaxID, "-"), status),
				props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

// supplyRow: suministro, período facturado y vencimiento.
func supplyRow(s *entity.Supply, inv *entity.Invoice) core.Row {
	return row.New(12).Add(
		col.New(6).Add(
			text.New("SUMINISTRO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("NIS %s   |   %s", s.NIS, nonEmpty(s.Address, "-")),
				props.Text{Size: 8, Top: 6}),
		),
		col.New(6).Add(
			text.New(fmt.Sprintf("Período: %s al %s", inv.PeriodFrom.Format("02/01/2006"), inv.PeriodTo.Format("02/01/2006")),
				props.Text{Size: 8, Align: align.Right, Top: 1}),
			text.New("Vencimiento: "+inv.DueDate.Format("02/01/2006"), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 6,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Concepto", 6, align.Left),
		h("Cantidad", 2, align.Right),
		h("Precio Unit.", 2, align.Right),
		h("Importe", 2, align.Right),
	)
}

// tableLineRows: una fila por línea de la factura.
func tableLineRows(lines []*entity.InvoiceLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(l.Description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQuantity(l.Quantity), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatMoney(l.NetAmount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(inv *entity.Invoice) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 11, Align: align.Right, Color: colorPrimary, Right: 1, Top: top,
		})
	}

	return row.New(22).Add(
		col.New(6),
		col.New(3).Add(
			label("Neto gravado:", 1),
			label("IVA:", 7),
			grand("TOTAL A PAGAR:", 14),
		),
		col.New(3).Add(
			value("$"+formatMoney(inv.NetAmount), 1),
			value("$"+formatMoney(inv.TaxAmount), 7),
			grand("$"+formatMoney(inv.TotalAmount), 14),
		),
	)
}

func footerRow(inv *entity.Invoice) core.Row {
	return row.New(10).Add(col.New(12).Add(
		text.New(fmt.Sprintf("Consumo facturado: %s unidades. Comprobante pendiente de autorización (CAE).",
			formatQuantity(inv.ConsumptionUnits)),
			props.Text{Size: 7, Color: colorGray, Top: 3}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea con punto de miles y coma decimal.
// Ej: 10285 → "10.285,00", 1234567.5 → "1.234.567,50"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + groupThousands(intPart) + "," + frac
}

// formatQuantity omite los decimales cuando la cantidad es entera.
func formatQuantity(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return groupThousands(d.StringFixed(0))
	}
	return strings.Replace(d.StringFixed(3), ".", ",", 1)
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
