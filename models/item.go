package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
)

// Item is a stocked material or finished product.
type Item struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Unit      string    `gorm:"size:20" json:"unit"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Code string `json:"code" binding:"required" validate:"required,max=50"`
	Name string `json:"name" binding:"required" validate:"required,max=255"`
	Unit string `json:"unit" validate:"max=20"`
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if _, err := authorizeContext(ctx, ActionManageMasterData); err != nil {
		return nil, err
	}
	input.Code = strings.TrimSpace(input.Code)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := utils.ValidateUnique[Item](ctx, db, "code", input.Code); err != nil {
		return nil, err
	}

	item := Item{
		Code:     input.Code,
		Name:     input.Name,
		Unit:     input.Unit,
		IsActive: utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("duplicate item code %s", input.Code)
		}
		return nil, err
	}
	return &item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	item, err := utils.FetchModel[Item](ctx, id)
	if err != nil {
		return nil, utils.TranslateNotFound(err, "item", id)
	}
	return item, nil
}

func ListItems(ctx context.Context, search string) ([]*Item, error) {
	db := config.GetDB().WithContext(ctx)
	var results []*Item
	if q := strings.TrimSpace(search); q != "" {
		like := "%" + q + "%"
		db = db.Where("code LIKE ? OR name LIKE ?", like, like)
	}
	if err := db.Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
