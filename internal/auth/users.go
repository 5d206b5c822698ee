package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"warehouse-backend/internal/apperr"
	"warehouse-backend/internal/models"

	"gorm.io/gorm"
)

// UserStore is the account storage the handlers need.
type UserStore interface {
	CountByRole(role models.UserRole) (int64, error)
	Create(u *models.User) error
	FindByEmail(email string) (*models.User, error)
	Get(id uint) (*models.User, error)
}

type GormUsers struct {
	db *gorm.DB
}

func NewGormUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

func (s *GormUsers) CountByRole(role models.UserRole) (int64, error) {
	var n int64
	err := s.db.Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

func (s *GormUsers) Create(u *models.User) error {
	err := s.db.Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("email %s is already registered", u.Email)
	}
	return err
}

func (s *GormUsers) FindByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", email)
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormUsers) Get(id uint) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user", id)
		}
		return nil, err
	}
	return &u, nil
}

// MemoryUsers backs the memory store driver.
type MemoryUsers struct {
	mu    sync.RWMutex
	users []models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{}
}

func (s *MemoryUsers) CountByRole(role models.UserRole) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *MemoryUsers) Create(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	u.ID = uint(len(s.users) + 1)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users = append(s.users, *u)
	return nil
}

func (s *MemoryUsers) FindByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

func (s *MemoryUsers) Get(id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == 0 || int(id) > len(s.users) {
		return nil, apperr.NotFound("user", id)
	}
	u := s.users[id-1]
	return &u, nil
}
