package models

// All returns every persistence model, in dependency order, for AutoMigrate
// in tests and local development.
func All() []any {
	return []any{
		&OrderModel{},
		&OrderLineModel{},
		&OrderEventModel{},
		&ProposalModel{},
		&ProposalLineModel{},
		&AccuracyRecordModel{},
		&CatalogItemModel{},
		&ItemVariantModel{},
	}
}
