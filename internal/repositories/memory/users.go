package memory

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/instantquiz-service/internal/models"
	"github.com/SAP-F-2025/instantquiz-service/internal/repositories"
)

// Directory is a user directory held in memory.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewDirectory(users ...*models.User) *Directory {
	d := &Directory{users: make(map[string]*models.User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

func (d *Directory) Put(user *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *user
	d.users[user.ID] = &cp
}

func (d *Directory) GetByID(ctx context.Context, id string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (d *Directory) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range ids {
		user, err := d.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, user)
	}
	return out, nil
}

func (d *Directory) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := d.GetByID(ctx, id)
	return err == nil, nil
}

func (d *Directory) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, err := d.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.Role == role, nil
}
