package store

import (
	"bitwise74/campus-finder/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// GormStore keeps users and items in a relational database. The *gorm.DB
// has to be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateUser(ctx context.Context, u *model.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}

	return err
}

func (s *GormStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}

	return &u, nil
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}

	return &u, nil
}

func (s *GormStore) UsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []model.User
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// UpdateUser only writes the columns named by p
func (s *GormStore) UpdateUser(ctx context.Context, id string, p UserPatch) error {
	values := map[string]any{"updated_at": time.Now().UTC()}
	for col, v := range p.changes() {
		values[col.sql] = v
	}

	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return translate(res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) ClearExpiredResets(ctx context.Context, t time.Time) (int64, error) {
	var cleared int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("reset_code_expires_at < ?", t).
			Updates(map[string]any{"reset_code": nil, "reset_code_expires_at": nil})
		if res.Error != nil {
			return res.Error
		}
		cleared += res.RowsAffected

		res = tx.Model(&model.User{}).
			Where("reset_token_expires_at < ?", t).
			Updates(map[string]any{"reset_token": nil, "reset_token_expires_at": nil})
		if res.Error != nil {
			return res.Error
		}
		cleared += res.RowsAffected

		return nil
	})

	return cleared, err
}

func (s *GormStore) CreateItem(ctx context.Context, i *model.Item) error {
	return s.db.WithContext(ctx).Create(i).Error
}

func (s *GormStore) ItemByID(ctx context.Context, id string) (*model.Item, error) {
	var i model.Item
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&i).Error; err != nil {
		return nil, translate(err)
	}

	return &i, nil
}

func (s *GormStore) ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error) {
	q := s.db.WithContext(ctx).Model(&model.Item{})

	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ReportedBy != "" {
		q = q.Where("user_id = ?", f.ReportedBy)
	}

	if f.Query != "" {
		like := "%" + escapeLike(strings.ToLower(f.Query)) + "%"
		q = q.Where(
			`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\'`,
			like, like, like, like,
		)
	}

	order := "created_at DESC"
	if f.Oldest {
		order = "created_at ASC"
	}

	offset, limit := pageBounds(f)

	var items []model.Item
	err := q.Order(order).Offset(offset).Limit(limit).Find(&items).Error
	return items, err
}

func (s *GormStore) SaveItem(ctx context.Context, i *model.Item) error {
	return s.db.WithContext(ctx).Save(i).Error
}

func (s *GormStore) DeleteItem(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Item{})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB, %w", err)
	}

	return sqlDB.Close()
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
