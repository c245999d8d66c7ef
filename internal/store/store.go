package store

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/talkincode/smartstock/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned by GetByID when no row matches the id.
var ErrNotFound = errors.New("product not found")

// topicChanged is published on the store bus after every committed mutation.
const topicChanged = "store:products:changed"

// ProductStore is the durable, observable product table. All writes go
// through its methods; every committed write notifies live subscriptions.
type ProductStore struct {
	db  *gorm.DB
	bus EventBus.Bus
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db, bus: EventBus.New()}
}

// notify wakes every live subscription so it can re-run its query.
func (s *ProductStore) notify() {
	s.bus.Publish(topicChanged)
}

// Insert upserts a record, assigning a fresh UUID when the id is empty, and
// returns the effective id. UpdatedAt is refreshed; an existing row with the
// same id is fully replaced.
func (s *ProductStore) Insert(ctx context.Context, p *domain.Product) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(p).Error; err != nil {
		return "", errors.Wrapf(err, "insert product %s", p.ID)
	}
	s.notify()
	return p.ID, nil
}

// Update replaces the stored row by id, refreshing UpdatedAt and clearing the
// sync flag. A missing row is a silent no-op; existence is the caller's
// concern.
func (s *ProductStore) Update(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return nil
	}
	p.UpdatedAt = time.Now()
	p.Synced = false
	res := s.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", p.ID).
		UpdateColumns(map[string]interface{}{
			"name":               p.Name,
			"description":        p.Description,
			"price":              p.Price,
			"quantity":           p.Quantity,
			"category":           p.Category,
			"updated_at":         p.UpdatedAt,
			"synced_with_remote": false,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update product %s", p.ID)
	}
	if res.RowsAffected > 0 {
		s.notify()
	}
	return nil
}

// Delete removes the row by id.
func (s *ProductStore) Delete(ctx context.Context, p *domain.Product) error {
	res := s.db.WithContext(ctx).Where("id = ?", p.ID).Delete(&domain.Product{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete product %s", p.ID)
	}
	if res.RowsAffected > 0 {
		s.notify()
	}
	return nil
}

// DeleteAll clears the table. Used by destructive reset paths only.
func (s *ProductStore) DeleteAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&domain.Product{}).Error; err != nil {
		return errors.Wrap(err, "delete all products")
	}
	s.notify()
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &p, nil
}

// List returns all records, newest first.
func (s *ProductStore) List(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return rows, nil
}

// SearchByName filters by case-insensitive substring match on the name.
// An empty query matches everything.
func (s *ProductStore) SearchByName(ctx context.Context, query string) ([]domain.Product, error) {
	db := s.db.WithContext(ctx).Model(&domain.Product{})
	if query != "" {
		if strings.EqualFold(s.db.Name(), "postgres") {
			db = db.Where("name ILIKE ?", "%"+query+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%")
		}
	}
	var rows []domain.Product
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "search products %q", query)
	}
	return rows, nil
}

// ByCategory filters by exact category match, newest first.
func (s *ProductStore) ByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var rows []domain.Product
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "products by category %q", category)
	}
	return rows, nil
}

func (s *ProductStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&domain.Product{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return count, nil
}

// TotalValue is the stock value of the whole table, 0 when empty.
func (s *ProductStore) TotalValue(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).
		Model(&domain.Product{}).
		Select("COALESCE(SUM(price * quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "total stock value")
	}
	return total, nil
}

// Unsynced returns the records whose local state has not reached the remote
// store yet, oldest first so retries drain in submission order.
func (s *ProductStore) Unsynced(ctx context.Context) ([]domain.Product, error) {
	var rows []domain.Product
	err := s.db.WithContext(ctx).
		Where("synced_with_remote = ?", false).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "unsynced products")
	}
	return rows, nil
}

// MarkSynced flips the sync flag only; UpdatedAt and every other field stay
// untouched so a concurrent local edit is never hidden.
func (s *ProductStore) MarkSynced(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("synced_with_remote", true).Error
	if err != nil {
		return errors.Wrapf(err, "mark product %s synced", id)
	}
	s.notify()
	return nil
}

// mergeColumns are the assignments applied on conflict during MergeRemote.
// The list is explicit so gorm's automatic updated_at tracking never joins
// the DO UPDATE set; timestamps land exactly as delivered.
var mergeColumns = []string{
	"name", "description", "price", "quantity", "category",
	"created_at", "updated_at", "synced_with_remote",
}

// MergeRemote upserts remote-deserialized rows verbatim: fields and
// timestamps are written exactly as delivered, which keeps pull cycles
// idempotent. One notification covers the whole batch.
func (s *ProductStore) MergeRemote(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(mergeColumns),
		}).
		Create(&products).Error
	if err != nil {
		return errors.Wrap(err, "merge remote products")
	}
	s.notify()
	return nil
}
