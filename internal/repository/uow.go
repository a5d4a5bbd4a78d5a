package repository

import (
	"context"

	"gorm.io/gorm"
)

// Registry hands out repositories bound to one database handle, either the
// root connection or a transaction.
type Registry struct {
	db *gorm.DB
}

func (r *Registry) Accounts() *AccountRepository   { return &AccountRepository{db: r.db} }
func (r *Registry) Roles() *RoleRepository         { return &RoleRepository{db: r.db} }
func (r *Registry) Tasks() *TaskRepository         { return &TaskRepository{db: r.db} }
func (r *Registry) Solutions() *SolutionRepository { return &SolutionRepository{db: r.db} }

// UnitOfWork scopes a group of repository mutations to a single transaction.
// Reads that precede mutation run against the root handle; everything inside
// Do commits or rolls back atomically.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Registry returns repositories bound to the root connection.
func (u *UnitOfWork) Registry() *Registry {
	return &Registry{db: u.db}
}

// Do runs fn inside a transaction. A returned error rolls everything back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(r *Registry) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Registry{db: tx})
	})
}
