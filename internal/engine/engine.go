package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storekit/shopcore/internal/hash"
	"github.com/storekit/shopcore/internal/models"
	"github.com/storekit/shopcore/internal/repo"
)

// Engine is the transaction coordinator. Every mutation goes through one of
// its methods, runs inside a single database transaction, and either commits
// with all invariants holding or leaves no trace. Contended resources
// (product stock, discount usage) are additionally serialized by the keyed
// lock manager so check-then-write sequences cannot interleave.
type Engine struct {
	db     *gorm.DB
	locks  *lockManager
	log    *slog.Logger
	now    func() time.Time
	newRef func() string
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithLockWait(d time.Duration) Option {
	return func(e *Engine) { e.locks = newLockManager(d) }
}

// WithClock overrides the time source, used by discount-window tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db *gorm.DB, opts ...Option) *Engine {
	e := &Engine{
		db:     db,
		locks:  newLockManager(2 * time.Second),
		log:    slog.Default(),
		now:    time.Now,
		newRef: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Repo returns read-only access on the live database; readers only ever see
// committed state.
func (e *Engine) Repo() *repo.GormRepo {
	return repo.New(e.db)
}

func (e *Engine) inTx(ctx context.Context, fn func(tx *gorm.DB, r *repo.GormRepo) error) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, repo.New(tx))
	})
}

func notFound(entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return err
}

// --- Accounts ---

type AccountInput struct {
	Handle   string
	Email    string
	Password string
	Admin    bool
}

func (e *Engine) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	if in.Password == "" {
		return nil, &ConstraintViolation{Entity: "account", Field: "password", Rule: "is required"}
	}
	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	acct := &models.Account{
		Handle:       in.Handle,
		Email:        in.Email,
		PasswordHash: pwHash,
		Active:       true,
		Admin:        in.Admin,
	}
	err = e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := validateAccount(ctx, r, acct); err != nil {
			return err
		}
		return tx.Create(acct).Error
	})
	if err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "account created", "account_id", acct.ID, "handle", acct.Handle)
	return acct, nil
}

func (e *Engine) UpdateAccount(ctx context.Context, acct *models.Account) (*models.Account, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Account(ctx, acct.ID); err != nil {
			return notFound("account", acct.ID, err)
		}
		if err := validateAccount(ctx, r, acct); err != nil {
			return err
		}
		return tx.Save(acct).Error
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// DeleteAccount cascades to the account's addresses, cart, wishlist and
// reviews; orders are independently durable and block the delete.
func (e *Engine) DeleteAccount(ctx context.Context, id uint) error {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Account(ctx, id); err != nil {
			return notFound("account", id, err)
		}
		if err := checkDeleteAccount(ctx, r, id); err != nil {
			return err
		}
		for _, cascade := range []any{
			&models.Address{}, &models.CartLine{}, &models.WishlistLine{}, &models.Review{},
		} {
			if err := tx.Where("account_id = ?", id).Delete(cascade).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Account{}, id).Error
	})
	if err == nil {
		e.log.InfoContext(ctx, "account deleted", "account_id", id)
	}
	return err
}

// --- Addresses ---

func (e *Engine) CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := validateAddress(addr); err != nil {
			return err
		}
		if err := checkAccountExists(ctx, r, "address", addr.AccountID); err != nil {
			return err
		}
		if addr.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("account_id = ?", addr.AccountID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(addr).Error
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (e *Engine) UpdateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		existing, err := r.Address(ctx, addr.ID)
		if err != nil {
			return notFound("address", addr.ID, err)
		}
		if existing.AccountID != addr.AccountID {
			return refViolation("address", "account", "ownership is immutable")
		}
		if err := validateAddress(addr); err != nil {
			return err
		}
		if addr.IsDefault && !existing.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("account_id = ? AND id <> ?", addr.AccountID, addr.ID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(addr).Error
	})
	if err != nil {
		return nil, err
	}
	return addr, nil
}

func (e *Engine) DeleteAddress(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Address(ctx, id); err != nil {
			return notFound("address", id, err)
		}
		if err := checkDeleteAddress(ctx, r, id); err != nil {
			return err
		}
		return tx.Delete(&models.Address{}, id).Error
	})
}

// --- Categories ---

func (e *Engine) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if err := validateCategory(c); err != nil {
			return err
		}
		if c.ParentID != nil {
			if err := checkCategoryExists(ctx, r, "category", *c.ParentID); err != nil {
				return err
			}
		}
		return tx.Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	err := e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Category(ctx, c.ID); err != nil {
			return notFound("category", c.ID, err)
		}
		if err := validateCategory(c); err != nil {
			return err
		}
		if err := checkCategoryParent(ctx, r, c); err != nil {
			return err
		}
		return tx.Save(c).Error
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) DeleteCategory(ctx context.Context, id uint) error {
	return e.inTx(ctx, func(tx *gorm.DB, r *repo.GormRepo) error {
		if _, err := r.Category(ctx, id); err != nil {
			return notFound("category", id, err)
		}
		if err := checkDeleteCategory(ctx, r, id); err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
}
