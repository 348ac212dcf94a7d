package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository hands out the per-domain repositories sharing one pool.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL-backed repository
func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Pool() *pgxpool.Pool { return r.pool }

func (r *Repository) base() base { return base{pool: r.pool} }

func (r *Repository) Accounts() *AccountRepository { return &AccountRepository{r.base()} }

func (r *Repository) Catalog() *CatalogRepository { return &CatalogRepository{r.base()} }

func (r *Repository) Grants() *GrantRepository { return &GrantRepository{r.base()} }

func (r *Repository) Feiseanna() *FeisRepository { return &FeisRepository{r.base()} }

func (r *Repository) Events() *EventRepository { return &EventRepository{r.base()} }

func (r *Repository) Stages() *StageRepository { return &StageRepository{r.base()} }

func (r *Repository) Scores() *ScoreRepository { return &ScoreRepository{r.base()} }

func (r *Repository) Registrations() *RegistrationRepository {
	return &RegistrationRepository{r.base()}
}

func (r *Repository) Payments() *PaymentRepository { return &PaymentRepository{r.base()} }

func (r *Repository) Resources() *ResourceRepository { return &ResourceRepository{r.base()} }

func (r *Repository) Leads() *LeadRepository { return &LeadRepository{r.base()} }
