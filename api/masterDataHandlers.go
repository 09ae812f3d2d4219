package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/workorder_backend/middlewares"
	"github.com/mmdatafocus/workorder_backend/models"
	"github.com/mmdatafocus/workorder_backend/utils"
	"github.com/shopspring/decimal"
)

func meHandler(c *gin.Context) {
	actor, err := utils.GetActorFromContext(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	user, err := middlewares.GetUser(c.Request.Context(), actor.Id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func createItemHandler(c *gin.Context) {
	var input models.NewItem
	if !bindJSON(c, &input) {
		return
	}
	item, err := models.CreateItem(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func listItemsHandler(c *gin.Context) {
	items, err := models.ListItems(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type stockView struct {
	*models.Stock
	WarehouseName string `json:"warehouse_name"`
}

func itemStocksHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	stocks, err := models.GetItemStocks(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	warehouseIds := make([]int, 0, len(stocks))
	for _, s := range stocks {
		warehouseIds = append(warehouseIds, s.WarehouseId)
	}
	warehouses, errs := middlewares.GetWarehouses(ctx, warehouseIds)
	views := make([]stockView, 0, len(stocks))
	total := decimal.Zero
	for i, s := range stocks {
		view := stockView{Stock: s}
		if i < len(warehouses) && (len(errs) <= i || errs[i] == nil) && warehouses[i] != nil {
			view.WarehouseName = warehouses[i].Name
		}
		views = append(views, view)
		total = total.Add(s.Quantity)
	}
	c.JSON(http.StatusOK, gin.H{"item_id": id, "total_stock": total, "stocks": views})
}

func createWarehouseHandler(c *gin.Context) {
	var input models.NewWarehouse
	if !bindJSON(c, &input) {
		return
	}
	warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, warehouse)
}

func listWarehousesHandler(c *gin.Context) {
	warehouses, err := models.ListWarehouses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, warehouses)
}

func receiveStockHandler(c *gin.Context) {
	var input models.NewStockReceipt
	if !bindJSON(c, &input) {
		return
	}
	stock, err := models.ReceiveStock(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stock)
}

func createBomHandler(c *gin.Context) {
	var input models.NewBom
	if !bindJSON(c, &input) {
		return
	}
	bom, err := models.CreateBom(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bom)
}

func getBomHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	bom, err := models.GetBom(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bom)
}

func createSalesOrderHandler(c *gin.Context) {
	var input models.NewSalesOrder
	if !bindJSON(c, &input) {
		return
	}
	order, err := models.CreateSalesOrder(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func getSalesOrderHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := models.GetSalesOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
