package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
)

type Warehouse struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Name    string `json:"name" binding:"required" validate:"required,max=100"`
	Address string `json:"address"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {
	if _, err := authorizeContext(ctx, ActionManageMasterData); err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := utils.ValidateUnique[Warehouse](ctx, db, "name", input.Name); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		Name:     input.Name,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("duplicate warehouse name %s", input.Name)
		}
		return nil, err
	}
	return &warehouse, nil
}

func ListWarehouses(ctx context.Context) ([]*Warehouse, error) {
	var results []*Warehouse
	if err := config.GetDB().WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
