package catalog

// Default встроенный каталог многоарендного бизнес-приложения
func Default() *Catalog {
	return MustNew(
		Table{Name: "Organization", Composite: []Field{
			{Name: "settings", Strategy: StrategyJSON},
			{Name: "address", Strategy: StrategyJSON},
		}},
		Table{Name: "User", Composite: []Field{
			{Name: "preferences", Strategy: StrategyJSON},
			{Name: "providerMetadata", Strategy: StrategyJSON},
		}},
		Table{Name: "Customer", Composite: []Field{
			{Name: "contacts", Strategy: StrategyJSON},
		}},
		Table{Name: "Product", Composite: []Field{
			{Name: "attributes", Strategy: StrategyJSON},
		}},
		Table{Name: "Invoice", Composite: []Field{
			{Name: "billingAddress", Strategy: StrategyJSON},
			{Name: "totals", Strategy: StrategyJSON},
		}},
		Table{Name: "InvoiceItem", Composite: []Field{
			{Name: "taxes", Strategy: StrategyJSON},
		}},
		Table{Name: "Requisition", Composite: []Field{
			{Name: "approvals", Strategy: StrategyJSON},
		}},
		Table{Name: "Message", Composite: []Field{
			{Name: "participants", Strategy: StrategyJSON},
			{Name: "attachments", Strategy: StrategyJSON},
		}},
	)
}
