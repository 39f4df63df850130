package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/goldmafia/clubhouse/internal/domain"
)

// ProfileRepository stores the avatar reference installed for each member
type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID finds a profile by member ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, display_name, avatar_ipfs_hash, updated_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.DisplayName, &p.AvatarCID, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SetAvatar installs an avatar CID, creating the profile row on first use
func (r *ProfileRepository) SetAvatar(ctx context.Context, id uuid.UUID, displayName, cid string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO profiles (id, display_name, avatar_ipfs_hash, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET avatar_ipfs_hash = EXCLUDED.avatar_ipfs_hash,
		    display_name = CASE WHEN EXCLUDED.display_name = '' THEN profiles.display_name ELSE EXCLUDED.display_name END,
		    updated_at = NOW()
	`, id, displayName, cid)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	return nil
}
