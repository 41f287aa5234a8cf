package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshelf/elib/internal/domain/member"
)

const getMemberByIDSQL = `SELECT id, name, email, tier FROM members WHERE id = $1`

var _ member.Repository = (*MemberRepository)(nil)

// MemberRepository implements member.Repository backed by PostgreSQL.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a MemberRepository that uses the given pool.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// GetByID returns a single member by their identifier.
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*member.Member, error) {
	var (
		m    member.Member
		tier string
	)
	err := r.pool.QueryRow(ctx, getMemberByIDSQL, id).Scan(&m.ID, &m.Name, &m.Email, &tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("getting member %q: %w", id, err)
	}
	m.Tier = member.ParseTier(tier)
	return &m, nil
}
