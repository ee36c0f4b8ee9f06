package files

import (
	"context"

	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

// Repository is the catalog of stored files. It records where the bytes
// live; the bytes themselves are kept by a blobstore.Store.
type Repository interface {
	// Upsert inserts the file row or, when (user_id, file_name) already
	// exists, overwrites it. ID, CreatedAt and UpdatedAt are filled from the
	// stored row.
	Upsert(ctx context.Context, file *models.StoredFile) error

	// GetByUserAndName returns the row owned by userID. Rows of other users
	// are never visible; a miss is common.ErrorNotFound.
	GetByUserAndName(ctx context.Context, userID, fileName string) (*models.StoredFile, error)

	// ListByUser returns all rows owned by userID ordered by name.
	ListByUser(ctx context.Context, userID string) ([]*models.StoredFile, error)
}
