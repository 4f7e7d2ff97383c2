package repositories

import (
	"context"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
)

// UserRepository is a read-only view of the identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
