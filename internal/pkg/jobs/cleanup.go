package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/glaciervault/glaciervault/app/repository"
	"github.com/glaciervault/glaciervault/internal/pkg/archive"
)

// PrefixDeleter deletes every stored object under a key prefix.
type PrefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Cleanup removes accounts whose payment-failure deletion deadline has
// passed, together with all of their archived objects.
type Cleanup struct {
	users repository.UserRepository
	store PrefixDeleter
	cfg   *archive.Config
	now   func() time.Time
}

// NewCleanup wires the cleanup job.
func NewCleanup(users repository.UserRepository, store PrefixDeleter, cfg *archive.Config) *Cleanup {
	return &Cleanup{
		users: users,
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run selects users by their persisted deadline and deletes them one by
// one. Per-user failures are collected, not fatal, so a partial run can
// simply be re-invoked.
func (c *Cleanup) Run(ctx context.Context) []error {
	users, err := c.users.ListScheduledForDeletion(c.now())
	if err != nil {
		return []error{err}
	}

	var errs []error
	for _, user := range users {
		deleted, err := c.store.DeletePrefix(ctx, c.cfg.GetUserPrefix(user.ID))
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: object cleanup: %w", user.ID, err))
			continue
		}
		if err := c.users.Delete(user.ID); err != nil {
			errs = append(errs, fmt.Errorf("user %d: account delete: %w", user.ID, err))
			continue
		}
		log.Infof("[Cleanup] Deleted user %d and %d archived objects", user.ID, deleted)
	}

	log.Infof("[Cleanup] Processed %d scheduled deletions, %d failures", len(users), len(errs))
	return errs
}
