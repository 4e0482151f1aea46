package postgres

import "github.com/HectorLiceaga/erp-cooperativa/internal/domain/repository"

// NewRepos arma todos los repositorios sobre el mismo Querier (pool o tx).
func NewRepos(q Querier) repository.Repos {
	return repository.Repos{
		Readings:      NewReadingRepository(q),
		Tariffs:       NewTariffRepository(q),
		Concepts:      NewConceptRepository(q),
		Contracts:     NewContractRepository(q),
		Supplies:      NewSupplyRepository(q),
		Customers:     NewCustomerRepository(q),
		DocumentTypes: NewDocumentTypeRepository(q),
		PointsOfSale:  NewPointOfSaleRepository(q),
		Sequences:     NewSequenceRepository(q),
		Invoices:      NewInvoiceRepository(q),
		Accounts:      NewAccountRepository(q),
		Parameters:    NewParameterRepository(q),
		Ledger:        NewLedgerRepository(q),
		Movements:     NewMovementRepository(q),
		Runs:          NewBillingRunRepository(q),
	}
}
