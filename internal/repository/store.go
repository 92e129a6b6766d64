package repository

import "database/sql"

// Store is the Postgres-backed coupon store: definitions and ledger.
type Store struct {
	*CouponRepo
	*UsageRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		CouponRepo: NewCouponRepo(db),
		UsageRepo:  NewUsageRepo(db),
	}
}
