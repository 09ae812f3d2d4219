package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Role      UserRole  `gorm:"size:20;not null;index" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string   `json:"username" validate:"required,max=100"`
	Name     string   `json:"name" validate:"required,max=100"`
	Role     UserRole `json:"role" validate:"required"`
	IsActive *bool    `json:"is_active"`
}

const userCacheTTL = 10 * time.Minute

func userCacheKey(id int) string {
	return fmt.Sprintf("User:%d", id)
}

// GetUser reads through the Redis cache.
// (may return NotFound)
func GetUser(ctx context.Context, id int) (*User, error) {
	var cached User
	exists, err := config.GetRedisObject(userCacheKey(id), &cached)
	if err != nil {
		config.LogError(config.GetLogger(), "UserModel", "GetUser", "redis read", id, err)
	}
	if exists {
		return &cached, nil
	}

	user, err := utils.FetchModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := config.SetRedisObject(userCacheKey(id), user, userCacheTTL); err != nil {
		config.LogError(config.GetLogger(), "UserModel", "GetUser", "redis write", id, err)
	}
	return user, nil
}

// UpsertUser creates or updates a user by username. Used by the seeding tool
// on behalf of the identity provider.
func UpsertUser(ctx context.Context, input *NewUser) (*User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, utils.NewValidationError("unknown role %q", input.Role)
	}
	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	db := config.GetDB().WithContext(ctx)
	var user User
	err := db.Where("username = ?", input.Username).
		Assign(User{Name: input.Name, Role: input.Role, IsActive: isActive}).
		FirstOrCreate(&user, User{Username: input.Username}).Error
	if err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(userCacheKey(user.ID)); err != nil {
		config.LogError(config.GetLogger(), "UserModel", "UpsertUser", "redis invalidate", user.ID, err)
	}
	return &user, nil
}
