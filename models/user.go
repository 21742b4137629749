package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/utils"
)

type User struct {
	ID         int      `gorm:"primary_key" json:"id"`
	PharmacyId string   `gorm:"size:36;index;not null" json:"pharmacy_id"`
	Username   string   `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Name       string   `gorm:"size:200;not null" json:"name"`
	Email      string   `gorm:"size:255" json:"email"`
	Password   string   `gorm:"size:255;not null" json:"-"`
	Role       UserRole `gorm:"size:20;not null;default:'Operator'" json:"role"`
	IsActive   *bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if exists {
		return &user, nil
	}

	db := config.GetDB()
	// Login happens before a tenant is established.
	lookupCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(lookupCtx).Where("username = ?", username).Take(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = config.SetRedisObject("User:"+username, &user, utils.GetCacheLifespan())
	return &user, nil
}
