package models

// Tables returns every model the schema knows about, in creation order.
// Used by app initialization and the db subcommand to ensure tables exist.
func Tables() []interface{} {
	return []interface{}{
		(*APIKey)(nil),
		(*BuzzAccount)(nil),
		(*BuzzTransaction)(nil),
		(*Bounty)(nil),
		(*BountyBenefactor)(nil),
		(*Tag)(nil),
		(*BountyTag)(nil),
		(*BountyEntry)(nil),
		(*BountyEngagement)(nil),
		(*BountyRank)(nil),
		(*EntityFile)(nil),
		(*EntityImage)(nil),
	}
}

// JoinTables returns the many-to-many join models that have to be registered
// with bun before relation queries work.
func JoinTables() []interface{} {
	return []interface{}{
		(*BountyTag)(nil),
	}
}
