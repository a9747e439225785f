package model

// All lists every persisted model in dependency order for auto-migration.
func All() []any {
	return []any{
		&Item{},
		&User{},
		&Document{},
		&DocumentChunk{},
		&ChatSession{},
		&ChatMessage{},
	}
}
