package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/goldmafia/clubhouse/internal/domain"
)

const pinnedFileColumns = `id, cid, kind, owner_id, COALESCE(scope_id, ''), COALESCE(filename, ''), COALESCE(mime_type, ''),
	size_bytes, url, duplicate, mirrored, pinned_at, created_at`

// PinnedFileRepository is the catalog of everything this service pinned.
type PinnedFileRepository struct {
	pool *pgxpool.Pool
}

func NewPinnedFileRepository(pool *pgxpool.Pool) *PinnedFileRepository {
	return &PinnedFileRepository{pool: pool}
}

// Create inserts a catalog record
func (r *PinnedFileRepository) Create(ctx context.Context, f *domain.PinnedFile) error {
	query := `
		INSERT INTO pinned_files (id, cid, kind, owner_id, scope_id, filename, mime_type, size_bytes, url, duplicate, mirrored, pinned_at, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13)
	`
	_, err := r.pool.Exec(ctx, query,
		f.ID, f.CID, f.Kind, f.OwnerID, f.ScopeID, f.Filename, f.MimeType,
		f.SizeBytes, f.URL, f.Duplicate, f.Mirrored, f.PinnedAt, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pinned file: %w", err)
	}
	return nil
}

// GetByCID returns the most recent record for a content identifier.
// Identical content pinned twice shares a CID, so several records may exist.
func (r *PinnedFileRepository) GetByCID(ctx context.Context, cid string) (*domain.PinnedFile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+pinnedFileColumns+`
		FROM pinned_files
		WHERE cid = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, cid)
	return scanPinnedFile(row)
}

// ListByScope lists files of one kind attached to a deal or channel, newest first
func (r *PinnedFileRepository) ListByScope(ctx context.Context, kind domain.PinKind, scopeID string, limit int) ([]*domain.PinnedFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+pinnedFileColumns+`
		FROM pinned_files
		WHERE kind = $1 AND scope_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, kind, scopeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned files: %w", err)
	}
	defer rows.Close()

	return collectPinnedFiles(rows)
}

// MarkMirrored flags a record once its bytes are copied to object storage
func (r *PinnedFileRepository) MarkMirrored(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pinned_files SET mirrored = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark pinned file mirrored: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPinnedFileNotFound
	}
	return nil
}

func scanPinnedFile(row pgx.Row) (*domain.PinnedFile, error) {
	var f domain.PinnedFile
	err := row.Scan(
		&f.ID, &f.CID, &f.Kind, &f.OwnerID, &f.ScopeID, &f.Filename, &f.MimeType,
		&f.SizeBytes, &f.URL, &f.Duplicate, &f.Mirrored, &f.PinnedAt, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPinnedFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pinned file: %w", err)
	}
	return &f, nil
}

func collectPinnedFiles(rows pgx.Rows) ([]*domain.PinnedFile, error) {
	files := []*domain.PinnedFile{}
	for rows.Next() {
		f, err := scanPinnedFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pinned files: %w", err)
	}
	return files, nil
}
