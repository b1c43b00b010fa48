package models

// All lists every persisted model in dependency order. sqlite mode and tests
// build their schema from it; Postgres is migrated by goose.
func All() []any {
	return []any{
		&PartyType{},
		&Position{},
		&Party{},
		&PartyUser{},
		&PartyRecruitment{},
		&PartyApplication{},
		&OutboxEvent{},
	}
}
