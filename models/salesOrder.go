package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
)

// SalesOrder is the upstream document a work order is created from.
type SalesOrder struct {
	ID           int                `gorm:"primary_key" json:"id"`
	OrderNumber  string             `gorm:"size:50;not null;uniqueIndex" json:"order_number"`
	CustomerId   int                `gorm:"index" json:"customer_id"`
	CustomerName string             `gorm:"size:255" json:"customer_name"`
	OrderDate    time.Time          `gorm:"not null" json:"order_date"`
	Notes        string             `gorm:"type:text" json:"notes"`
	Details      []SalesOrderDetail `gorm:"foreignKey:SalesOrderId" json:"details"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesOrderDetail struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SalesOrderId  int             `gorm:"not null;index" json:"sales_order_id"`
	ProductId     *int            `gorm:"index" json:"product_id"`
	Description   string          `gorm:"type:text" json:"description"`
	Specification string          `gorm:"type:text" json:"specification"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type NewSalesOrder struct {
	OrderNumber  string                `json:"order_number" binding:"required" validate:"required,max=50"`
	CustomerId   int                   `json:"customer_id"`
	CustomerName string                `json:"customer_name" validate:"max=255"`
	OrderDate    time.Time             `json:"order_date"`
	Notes        string                `json:"notes"`
	Details      []NewSalesOrderDetail `json:"details" validate:"dive"`
}

type NewSalesOrderDetail struct {
	ProductId     *int            `json:"product_id"`
	Description   string          `json:"description"`
	Specification string          `json:"specification"`
	Quantity      decimal.Decimal `json:"quantity"`
}

func (input *NewSalesOrder) validate(ctx context.Context) error {
	input.OrderNumber = strings.TrimSpace(input.OrderNumber)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	db := config.GetDB()
	if err := utils.ValidateUnique[SalesOrder](ctx, db, "order_number", input.OrderNumber); err != nil {
		return err
	}
	var productIds []int
	for i, d := range input.Details {
		if err := utils.RequirePositive("details["+itoa(i)+"].quantity", d.Quantity); err != nil {
			return err
		}
		if d.ProductId == nil && strings.TrimSpace(d.Description) == "" {
			return utils.NewValidationError("details[%d] needs a product or a description", i)
		}
		if d.ProductId != nil {
			productIds = append(productIds, *d.ProductId)
		}
	}
	return utils.ValidateResourcesId[Item](ctx, db, "products", productIds)
}

func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
	if _, err := authorizeContext(ctx, ActionCreateWorkOrder); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	order := SalesOrder{
		OrderNumber:  input.OrderNumber,
		CustomerId:   input.CustomerId,
		CustomerName: input.CustomerName,
		OrderDate:    orderDate,
		Notes:        input.Notes,
	}
	for _, d := range input.Details {
		order.Details = append(order.Details, SalesOrderDetail{
			ProductId:     d.ProductId,
			Description:   d.Description,
			Specification: d.Specification,
			Quantity:      d.Quantity,
		})
	}
	if err := config.GetDB().WithContext(ctx).Create(&order).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflict("duplicate order number %s", input.OrderNumber)
		}
		return nil, err
	}
	return &order, nil
}

func GetSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	order, err := utils.FetchModel[SalesOrder](ctx, id, "Details")
	if err != nil {
		return nil, utils.TranslateNotFound(err, "sales order", id)
	}
	return order, nil
}
