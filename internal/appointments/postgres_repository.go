package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	pool pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithQuerier(q pgxQuerier) *PostgresRepository {
	if q == nil {
		panic("appointments: querier required")
	}
	return &PostgresRepository{pool: q}
}

func (r *PostgresRepository) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	id := uuid.New()
	query := `
		INSERT INTO appointments (id, title, service, locality, day, time, provider_id, provider_name, owner_identity, selected_by)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		appt.Title,
		appt.Service,
		appt.Locality,
		appt.Day,
		appt.Time,
		appt.ProviderID,
		appt.ProviderName,
		nullableString(appt.OwnerIdentity),
		appt.SelectedBy,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	saved := *appt
	saved.ID = id.String()
	saved.CreatedAt = createdAt.UTC()
	return &saved, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerIdentity string, limit int) ([]Appointment, error) {
	if limit <= 0 || limit > ListLimit {
		limit = ListLimit
	}
	const columns = `id, title, service, locality, day, time, provider_id, provider_name, owner_identity, selected_by, created_at`

	var (
		rows pgx.Rows
		err  error
	)
	if ownerIdentity == "" {
		rows, err = r.pool.Query(ctx, `SELECT `+columns+` FROM appointments ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+columns+` FROM appointments WHERE owner_identity = $1 ORDER BY created_at DESC LIMIT $2`, ownerIdentity, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		var (
			a     Appointment
			day   time.Time
			owner *string
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Service, &a.Locality, &day, &a.Time, &a.ProviderID, &a.ProviderName, &owner, &a.SelectedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		a.Day = day.Format(dateLayout)
		if owner != nil {
			a.OwnerIdentity = *owner
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	return out, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
