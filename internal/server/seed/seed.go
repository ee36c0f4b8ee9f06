// Package seed registers a fixed set of (email, device) identities so that a
// fresh database can be used for manual testing.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/devicegate/internal/common"
	"github.com/dmitrijs2005/devicegate/internal/dbx"
	"github.com/dmitrijs2005/devicegate/internal/logging"
	"github.com/dmitrijs2005/devicegate/internal/server/auth"
	"github.com/dmitrijs2005/devicegate/internal/server/models"
	"github.com/dmitrijs2005/devicegate/internal/server/repositories/repomanager"
)

// Identity is one registered (email, device) pair.
type Identity struct {
	Email    string
	DeviceID string
}

// DefaultIdentities is the development fixture. user1 owns two devices.
var DefaultIdentities = []Identity{
	{Email: "user1@gmail.com", DeviceID: "ABCDEF"},
	{Email: "user2@gmail.com", DeviceID: "XYZ"},
	{Email: "user1@gmail.com", DeviceID: "456"},
}

// Run inserts every identity that is not registered yet, in one
// transaction, and reports how many were created.
func Run(ctx context.Context, db *sql.DB, m repomanager.RepositoryManager, ids []Identity, logger logging.Logger) (int, error) {
	created := 0

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.Users(tx)
		for _, id := range ids {
			email, err := auth.NormalizeEmail(id.Email)
			if err != nil {
				return fmt.Errorf("seed %q: %w", id.Email, err)
			}
			deviceID, err := auth.NormalizeDeviceID(id.DeviceID)
			if err != nil {
				return fmt.Errorf("seed %q: %w", id.DeviceID, err)
			}

			_, err = repo.Lookup(ctx, email, deviceID)
			if err == nil {
				logger.Info(ctx, "identity already registered", "email", email, "device_id", deviceID)
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}

			u, err := repo.Create(ctx, &models.User{Email: email, DeviceID: deviceID})
			if err != nil {
				return err
			}
			logger.Info(ctx, "identity registered", "user_id", u.ID, "email", email, "device_id", deviceID)
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
