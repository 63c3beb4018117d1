package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmanager/internal/model"

	"gorm.io/gorm"
)

// GormStore 是 Store 的数据库实现。
//
// 依赖 gorm.Config 打开 TranslateError，才能把各数据库的唯一约束
// 冲突统一翻译成 gorm.ErrDuplicatedKey。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建数据库会话存储。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, sess *model.Session) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *GormStore) FindByPair(ctx context.Context, id, hash string) (*model.Session, error) {
	var sess model.Session
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND session_hash = ?", id, hash).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &sess, nil
}

func (s *GormStore) ExistsID(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("session_id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count session id: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) DeleteByID(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("session_id = ?", id).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteByUser(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// GormUserFinder 是 UserFinder 的数据库实现。
type GormUserFinder struct {
	db *gorm.DB
}

// NewGormUserFinder 创建数据库用户查询。
func NewGormUserFinder(db *gorm.DB) *GormUserFinder {
	return &GormUserFinder{db: db}
}

func (f *GormUserFinder) FindUserByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := f.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
