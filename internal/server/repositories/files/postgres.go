package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/dbx"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements the file catalog over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the row keyed by (user_id, file_name). On conflict the
// existing row keeps its id and created_at; everything else is replaced.
func (r *PostgresRepository) Upsert(ctx context.Context, file *models.StoredFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	query := `
		INSERT INTO files (id, user_id, file_name, storage_key, size_bytes, sha256)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, file_name)
		DO UPDATE SET
			storage_key = EXCLUDED.storage_key,
			size_bytes = EXCLUDED.size_bytes,
			sha256 = EXCLUDED.sha256,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.UserID, file.FileName, file.StorageKey, file.SizeBytes, file.SHA256).
		Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByUserAndName returns the file row for (userID, fileName).
func (r *PostgresRepository) GetByUserAndName(ctx context.Context, userID, fileName string) (*models.StoredFile, error) {
	query := `
		SELECT id, user_id, file_name, storage_key, size_bytes, sha256, created_at, updated_at
		FROM files
		WHERE user_id = $1 AND file_name = $2
	`
	f := &models.StoredFile{}
	err := r.db.QueryRowContext(ctx, query, userID, fileName).
		Scan(&f.ID, &f.UserID, &f.FileName, &f.StorageKey, &f.SizeBytes, &f.SHA256, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// ListByUser returns every file row owned by userID.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.StoredFile, error) {
	query := `
		SELECT id, user_id, file_name, storage_key, size_bytes, sha256, created_at, updated_at
		FROM files
		WHERE user_id = $1
		ORDER BY file_name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredFile
	for rows.Next() {
		var f models.StoredFile
		if err := rows.Scan(&f.ID, &f.UserID, &f.FileName, &f.StorageKey, &f.SizeBytes, &f.SHA256, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
