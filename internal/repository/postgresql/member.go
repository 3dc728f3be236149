package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
)

type memberRepositoryImpl struct {
	db *database.DB
}

func NewMemberRepository(db *database.DB) member.MemberRepository {
	return &memberRepositoryImpl{db: db}
}

// List implements member.MemberRepository.
func (r *memberRepositoryImpl) List(ctx context.Context) ([]member.Member, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT handle, name, latitude, longitude, address, role, chat_id
		FROM members
		ORDER BY handle
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []member.Member
	for rows.Next() {
		var m member.Member
		var role string
		err := rows.Scan(
			&m.Handle,
			&m.Name,
			&m.Latitude,
			&m.Longitude,
			&m.Address,
			&role,
			&m.ChatID,
		)
		if err != nil {
			return nil, err
		}
		m.Role = member.ParseRole(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

// Upsert implements member.MemberRepository.
func (r *memberRepositoryImpl) Upsert(ctx context.Context, m member.Member) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO members (handle, name, latitude, longitude, address, role, chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (handle) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			role = EXCLUDED.role,
			chat_id = EXCLUDED.chat_id,
			updated_at = NOW()
	`

	handle := member.NormalizeHandle(m.Handle)
	if handle == "" {
		return member.ErrMissingHandle
	}

	_, err := q.Exec(ctx, query, handle, m.Name, m.Latitude, m.Longitude, m.Address, string(member.ParseRole(string(m.Role))), m.ChatID)
	if err != nil {
		return fmt.Errorf("failed to upsert member %s: %w", handle, err)
	}
	return nil
}

// SaveAll implements member.MemberRepository.
func (r *memberRepositoryImpl) SaveAll(ctx context.Context, members []member.Member) error {
	return WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		for _, m := range members {
			if err := r.Upsert(txCtx, m); err != nil {
				return err
			}
		}
		return nil
	})
}
