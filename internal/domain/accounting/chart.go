// Package accounting contiene las reglas puras del plan de cuentas y del balance de asientos.
package accounting

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/HectorLiceaga/erp-cooperativa/internal/domain"
	"github.com/HectorLiceaga/erp-cooperativa/internal/domain/entity"
)

var codePattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// ValidCode indica si el código respeta el formato jerárquico 1, 1.1, 1.1.01.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Chart arena de cuentas indexada por id y por código.
// Los hijos se calculan a partir de ParentID; no se guardan punteros al padre ni a los hijos.
type Chart struct {
	accounts []*entity.Account
	byID     map[string]int
	byCode   map[string]int
	children map[string][]int
}

// NewChart construye la arena a partir de una lista plana de cuentas.
func NewChart(accounts []*entity.Account) *Chart {
	c := &Chart{
		accounts: make([]*entity.Account, 0, len(accounts)),
		byID:     make(map[string]int, len(accounts)),
		byCode:   make(map[string]int, len(accounts)),
		children: make(map[string][]int),
	}
	for _, a := range accounts {
		c.add(a)
	}
	return c
}

func (c *Chart) add(a *entity.Account) {
	idx := len(c.accounts)
	c.accounts = append(c.accounts, a)
	c.byID[a.ID] = idx
	c.byCode[a.Code] = idx
	if a.ParentID != "" {
		c.children[a.ParentID] = append(c.children[a.ParentID], idx)
	}
}

// ByCode busca una cuenta por código.
func (c *Chart) ByCode(code string) (*entity.Account, bool) {
	idx, ok := c.byCode[code]
	if !ok {
		return nil, false
	}
	return c.accounts[idx], true
}

// ByID busca una cuenta por id.
func (c *Chart) ByID(id string) (*entity.Account, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return c.accounts[idx], true
}

// Children devuelve los hijos directos ordenados por código.
func (c *Chart) Children(id string) []*entity.Account {
	idxs := c.children[id]
	out := make([]*entity.Account, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.accounts[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Roots devuelve las cuentas sin padre ordenadas por código.
func (c *Chart) Roots() []*entity.Account {
	var out []*entity.Account
	for _, a := range c.accounts {
		if a.ParentID == "" {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Path devuelve la cadena desde la raíz hasta la cuenta (inclusive).
func (c *Chart) Path(id string) []*entity.Account {
	var path []*entity.Account
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		a, ok := c.ByID(id)
		if !ok {
			break
		}
		path = append([]*entity.Account{a}, path...)
		id = a.ParentID
	}
	return path
}

// CheckNew valida una cuenta nueva contra la arena: código, unicidad y padre agrupador.
func (c *Chart) CheckNew(a *entity.Account) error {
	if a.Name == "" {
		return domain.NewValidation("name", "requerido")
	}
	if !ValidCode(a.Code) {
		return domain.NewValidation("code", "formato inválido, se espera 1 o 1.1.01")
	}
	if _, exists := c.ByCode(a.Code); exists {
		return domain.ErrDuplicate
	}
	if a.ParentID == "" {
		return nil
	}
	parent, ok := c.ByID(a.ParentID)
	if !ok {
		return domain.NewNotFound("cuenta padre", a.ParentID)
	}
	if parent.Postable {
		return domain.NewValidation("parent", "una cuenta imputable no puede tener subcuentas")
	}
	return nil
}

// CheckDelete impide borrar cuentas agrupadoras con hijos.
func (c *Chart) CheckDelete(id string) error {
	if _, ok := c.ByID(id); !ok {
		return domain.NewNotFound("cuenta", id)
	}
	if len(c.children[id]) > 0 {
		return domain.ErrConflict
	}
	return nil
}

// Balance suma debe y haber de las líneas y devuelve ConsistencyError si no coinciden.
func Balance(lines []*entity.LedgerLine) (debit, credit decimal.Decimal, err error) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	if !debit.Equal(credit) {
		return debit, credit, &domain.ConsistencyError{Debit: debit, Credit: credit}
	}
	return debit, credit, nil
}
