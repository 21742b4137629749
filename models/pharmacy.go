package models

import (
	"context"
	"time"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/utils"
)

type Pharmacy struct {
	ID        string    `gorm:"size:36;primary_key" json:"id"` // uuid
	Name      string    `gorm:"size:255;not null" json:"name"`
	Nuit      string    `gorm:"size:50;default:null" json:"nuit"`
	Address   string    `gorm:"type:text" json:"address"`
	City      string    `gorm:"size:100" json:"city"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Email     string    `gorm:"size:255" json:"email"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetPharmacyById(ctx context.Context, id string) (*Pharmacy, error) {
	var pharmacy Pharmacy
	exists, err := config.GetRedisObject("Pharmacy:"+id, &pharmacy)
	if err != nil {
		return nil, err
	}
	if exists {
		return &pharmacy, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&pharmacy).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = config.SetRedisObject("Pharmacy:"+id, &pharmacy, utils.GetCacheLifespan())
	return &pharmacy, nil
}
