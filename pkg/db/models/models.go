package models

// All lists every persisted model in dependency order, for schema bootstrap on dialects without SQL migrations.
func All() []any {
	return []any{
		&AdminUser{},
		&Category{},
		&Product{},
		&ProductImage{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
