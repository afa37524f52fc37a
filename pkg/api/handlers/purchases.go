package handlers

import (
	"net/http"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/jordanlanch/backoffice/pkg/models"
	"github.com/jordanlanch/backoffice/pkg/purchases"
	"github.com/labstack/echo/v4"
)

// DefaultLowStockThreshold is used by the inventory report when the caller
// gives none.
const DefaultLowStockThreshold = 10

// PurchaseHandler handles supplier and purchase order endpoints.
type PurchaseHandler struct {
	service  *purchases.Service
	timeouts Timeouts
}

// NewPurchaseHandler creates a new purchasing handler
func NewPurchaseHandler(service *purchases.Service, timeouts Timeouts) *PurchaseHandler {
	return &PurchaseHandler{service: service, timeouts: timeouts}
}

// ReceiptResponse acknowledges a goods receipt.
type ReceiptResponse struct {
	Message  string           `json:"message"`
	Purchase *models.Purchase `json:"purchase"`
}

// ListSuppliers godoc
// @Summary List suppliers
// @Tags Purchasing
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search name, email, phone or company"
// @Success 200 {object} models.ListResponse[models.Supplier]
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/suppliers [get]
func (h *PurchaseHandler) ListSuppliers(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListSuppliers(ctx, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetSupplier godoc
// @Summary Get a supplier
// @Tags Purchasing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Supplier ID"
// @Success 200 {object} models.Supplier
// @Failure 404 {object} models.ErrorResponse
// @Router /purchases/suppliers/{id} [get]
func (h *PurchaseHandler) GetSupplier(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	supplier, err := h.service.GetSupplier(ctx, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// CreateSupplier godoc
// @Summary Create a supplier
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body purchases.SupplierRequest true "Supplier"
// @Success 201 {object} models.Supplier
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/suppliers [post]
func (h *PurchaseHandler) CreateSupplier(c echo.Context) error {
	var req purchases.SupplierRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	supplier, err := h.service.CreateSupplier(ctx, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, supplier)
}

// UpdateSupplier godoc
// @Summary Update a supplier
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Supplier ID"
// @Param request body purchases.SupplierRequest true "Supplier"
// @Success 200 {object} models.Supplier
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /purchases/suppliers/{id} [put]
func (h *PurchaseHandler) UpdateSupplier(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req purchases.SupplierRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	supplier, err := h.service.UpdateSupplier(ctx, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier godoc
// @Summary Delete a supplier
// @Tags Purchasing
// @Security BearerAuth
// @Param id path int true "Supplier ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/suppliers/{id} [delete]
func (h *PurchaseHandler) DeleteSupplier(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteSupplier(ctx, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SupplierMetrics godoc
// @Summary Performance of one supplier
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Supplier ID"
// @Param period query int false "Days to look back" default(365)
// @Success 200 {object} purchases.SupplierMetrics
// @Failure 404 {object} models.ErrorResponse
// @Router /purchases/suppliers/{id}/performance [get]
func (h *PurchaseHandler) SupplierMetrics(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	w, err := periodParam(c, 365)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.SupplierMetrics(ctx, actor, id, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListPurchases godoc
// @Summary List purchase orders
// @Tags Purchasing
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search reference number or supplier name"
// @Param ordering query string false "purchase_date or total_amount"
// @Param status query string false "Purchase status"
// @Param purchase_date query string false "Purchase date (YYYY-MM-DD)"
// @Success 200 {object} models.ListResponse[models.Purchase]
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/purchases [get]
func (h *PurchaseHandler) ListPurchases(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter := purchases.PurchaseFilter{Status: c.QueryParam("status")}
	if filter.PurchaseDate, err = optionalDate(c, "purchase_date"); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListPurchases(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetPurchase godoc
// @Summary Get a purchase order with its items
// @Tags Purchasing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Success 200 {object} models.Purchase
// @Failure 404 {object} models.ErrorResponse
// @Router /purchases/purchases/{id} [get]
func (h *PurchaseHandler) GetPurchase(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	purchase, err := h.service.GetPurchase(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, purchase)
}

// CreatePurchase godoc
// @Summary Create a purchase order
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body purchases.PurchaseRequest true "Purchase"
// @Success 201 {object} models.Purchase
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/purchases [post]
func (h *PurchaseHandler) CreatePurchase(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req purchases.PurchaseRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	purchase, err := h.service.CreatePurchase(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, purchase)
}

// UpdatePurchase godoc
// @Summary Update a purchase order
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Param request body purchases.PurchaseUpdateRequest true "Purchase"
// @Success 200 {object} models.Purchase
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/purchases/{id} [put]
func (h *PurchaseHandler) UpdatePurchase(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req purchases.PurchaseUpdateRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	purchase, err := h.service.UpdatePurchase(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, purchase)
}

// DeletePurchase godoc
// @Summary Delete a draft purchase order
// @Tags Purchasing
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/purchases/{id} [delete]
func (h *PurchaseHandler) DeletePurchase(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeletePurchase(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListItems godoc
// @Summary List the items of a purchase order
// @Tags Purchasing
// @Produce json
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Success 200 {array} models.PurchaseItem
// @Failure 404 {object} models.ErrorResponse
// @Router /purchases/purchases/{id}/items [get]
func (h *PurchaseHandler) ListItems(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	items, err := h.service.ListItems(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// AddItem godoc
// @Summary Add an item to a purchase order
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Param request body purchases.PurchaseItemRequest true "Item"
// @Success 201 {object} models.PurchaseItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/purchases/{id}/items [post]
func (h *PurchaseHandler) AddItem(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req purchases.PurchaseItemRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	item, err := h.service.AddItem(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem godoc
// @Summary Update a purchase item
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Param request body purchases.PurchaseItemRequest true "Item"
// @Success 200 {object} models.PurchaseItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/items/{id} [put]
func (h *PurchaseHandler) UpdateItem(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req purchases.PurchaseItemRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	item, err := h.service.UpdateItem(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem godoc
// @Summary Delete a purchase item
// @Tags Purchasing
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/items/{id} [delete]
func (h *PurchaseHandler) DeleteItem(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteItem(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ReceiveItems godoc
// @Summary Receive goods
// @Description Sets the received quantity of purchase lines and moves stock by the difference.
// @Tags Purchasing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Purchase ID"
// @Param request body purchases.ReceiveRequest true "Received lines"
// @Success 200 {object} ReceiptResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /purchases/purchases/{id}/receive [post]
func (h *PurchaseHandler) ReceiveItems(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req purchases.ReceiveRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	purchase, err := h.service.ReceiveItems(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, ReceiptResponse{
		Message:  i18n.T(c, i18n.MsgItemsReceived),
		Purchase: purchase,
	})
}

// Dashboard godoc
// @Summary Purchasing dashboard
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} purchases.Dashboard
// @Router /purchases/dashboard/summary [get]
func (h *PurchaseHandler) Dashboard(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Dashboard(ctx, actor)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Report godoc
// @Summary Purchasing report
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} purchases.Report
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/dashboard/reports [get]
func (h *PurchaseHandler) Report(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	rng, err := rangeParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Report(ctx, actor, rng)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Analytics godoc
// @Summary Purchasing analytics
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(30)
// @Success 200 {object} purchases.Analytics
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/analytics [get]
func (h *PurchaseHandler) Analytics(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	w, err := periodParam(c, 30)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.Analytics(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SupplierPerformance godoc
// @Summary Supplier performance
// @Description Rankings, quality metrics and cost analysis across suppliers.
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(365)
// @Success 200 {object} purchases.SupplierPerformance
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/supplier-performance [get]
func (h *PurchaseHandler) SupplierPerformance(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	w, err := periodParam(c, 365)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.SupplierPerformance(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// InventoryReport godoc
// @Summary Inventory report
// @Tags Purchasing Reports
// @Produce json
// @Security BearerAuth
// @Param low_stock_threshold query int false "Stock level counted as low" default(10)
// @Success 200 {object} purchases.InventoryReport
// @Failure 400 {object} models.ErrorResponse
// @Router /purchases/inventory [get]
func (h *PurchaseHandler) InventoryReport(c echo.Context) error {
	threshold := DefaultLowStockThreshold
	raw, err := optionalInt(c, "low_stock_threshold")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	if raw != nil {
		threshold = *raw
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	res, err := h.service.InventoryReport(ctx, threshold)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
