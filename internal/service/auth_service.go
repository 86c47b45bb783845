package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tinynews/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// bcrypt 只处理前 72 字节
const maxPasswordBytes = 72

// AuthService verifies and stores user credentials.
type AuthService struct {
	db *gorm.DB
}

// RegisterInput represents fields accepted at registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
	Bio       string
}

// NewAuthService creates an AuthService instance.
func NewAuthService(gdb *gorm.DB) *AuthService {
	return &AuthService{db: gdb}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// timingHash 用于用户名不存在时仍执行一次 bcrypt 比较，避免通过耗时枚举用户。
func timingHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tinynews-timing-equaliser"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Register validates input, rejects taken email/username and persists a bcrypt hashed user.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	password := input.Password

	if firstName == "" || lastName == "" || email == "" || username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrMissingFields
	}
	if len(password) > maxPasswordBytes {
		return nil, validationError("password must be at most %d bytes", maxPasswordBytes)
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&db.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing > 0 {
		return nil, ErrConflict
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Username:  username,
		Password:  string(hashed),
		Bio:       strings.TrimSpace(input.Bio),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// 并发注册时预检查可能都通过，此时由唯一索引兜底
		if isDuplicateEntry(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &user, nil
}

// Login returns the user when username and password match.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*db.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(timingHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// GetUser fetches a user by id.
func (s *AuthService) GetUser(ctx context.Context, id uint) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
