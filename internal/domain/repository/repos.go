package repository

// Repos agrupa los repositorios atados a un mismo Querier (pool o transacción).
type Repos struct {
	Readings      ReadingRepository
	Tariffs       TariffRepository
	Concepts      ConceptRepository
	Contracts     ContractRepository
	Supplies      SupplyRepository
	Customers     CustomerRepository
	DocumentTypes DocumentTypeRepository
	PointsOfSale  PointOfSaleRepository
	Sequences     SequenceRepository
	Invoices      InvoiceRepository
	Accounts      AccountRepository
	Parameters    ParameterRepository
	Ledger        LedgerRepository
	Movements     MovementRepository
	Runs          BillingRunRepository
}
