// Package users is the identity registry: it resolves registered
// (email, device) pairs and device ids to users.
package users

import (
	"context"

	"github.com/dmitrijs2005/devicegate/internal/server/models"
)

type Repository interface {
	// Create inserts a user, assigning an id when user.ID is empty.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// Lookup finds the user registered with exactly this email and device.
	// Implementations return common.ErrorNotFound when there is none.
	Lookup(ctx context.Context, email, deviceID string) (*models.User, error)

	// LookupByDevice resolves a device id to its user. It fails with
	// common.ErrorNotFound when absent and common.ErrorAmbiguousIdentity when
	// the device is registered more than once.
	LookupByDevice(ctx context.Context, deviceID string) (*models.User, error)
}
