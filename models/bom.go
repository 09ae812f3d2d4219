package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
)

// Bom is a recipe; work order items reference it, never own it.
type Bom struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	ProductId *int      `gorm:"index" json:"product_id"`
	Items     []BomItem `gorm:"foreignKey:BomId" json:"items"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BomItem quantities are per one unit of the parent product.
type BomItem struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BomId            int             `gorm:"not null;index" json:"bom_id"`
	ItemId           int             `gorm:"not null;index" json:"item_id"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_required"`
	Notes            string          `gorm:"size:255" json:"notes"`

	TotalStock *decimal.Decimal `gorm:"-" json:"total_stock,omitempty"`
}

type NewBom struct {
	Code      string       `json:"code" binding:"required" validate:"required,max=50"`
	Name      string       `json:"name" binding:"required" validate:"required,max=255"`
	ProductId *int         `json:"product_id"`
	Items     []NewBomItem `json:"items" binding:"required" validate:"required,min=1,dive"`
}

type NewBomItem struct {
	ItemId           int             `json:"item_id" validate:"required,gt=0"`
	QuantityRequired decimal.Decimal `json:"quantity_required"`
	Notes            string          `json:"notes" validate:"max=255"`
}

func (input *NewBom) validate(ctx context.Context) error {
	input.Code = strings.TrimSpace(input.Code)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	db := config.GetDB()
	if err := utils.ValidateUnique[Bom](ctx, db, "code", input.Code); err != nil {
		return err
	}
	if input.ProductId != nil {
		if err := utils.ValidateResourceId[Item](ctx, db, "product", *input.ProductId); err != nil {
			return err
		}
	}
	itemIds := make([]int, 0, len(input.Items))
	for i, item := range input.Items {
		if err := utils.RequirePositive("items["+itoa(i)+"].quantity_required", item.QuantityRequired); err != nil {
			return err
		}
		itemIds = append(itemIds, item.ItemId)
	}
	return utils.ValidateResourcesId[Item](ctx, db, "bom component items", itemIds)
}

func CreateBom(ctx context.Context, input *NewBom) (*Bom, error) {
	if _, err := authorizeContext(ctx, ActionManageMasterData); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	bom := Bom{
		Code:      input.Code,
		Name:      input.Name,
		ProductId: input.ProductId,
	}
	for _, item := range input.Items {
		bom.Items = append(bom.Items, BomItem{
			ItemId:           item.ItemId,
			QuantityRequired: item.QuantityRequired,
			Notes:            item.Notes,
		})
	}
	// creates the BomItems through the association
	if err := config.GetDB().WithContext(ctx).Create(&bom).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("duplicate bom code %s", input.Code)
		}
		return nil, err
	}
	return &bom, nil
}

func GetBom(ctx context.Context, id int) (*Bom, error) {
	bom, err := utils.FetchModel[Bom](ctx, id, "Items")
	if err != nil {
		return nil, utils.TranslateNotFound(err, "bom", id)
	}
	return bom, nil
}
