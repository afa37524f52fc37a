package handlers

import (
	"net/http"
	"strconv"

	"github.com/jordanlanch/backoffice/pkg/api/errors"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/domain"
	"github.com/jordanlanch/backoffice/pkg/sales"
	"github.com/labstack/echo/v4"
)

// SalesHandler handles customer, product and sale endpoints.
type SalesHandler struct {
	service  *sales.Service
	timeouts Timeouts
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(service *sales.Service, timeouts Timeouts) *SalesHandler {
	return &SalesHandler{service: service, timeouts: timeouts}
}

// ListCustomers godoc
// @Summary List customers
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search name, email, phone or company"
// @Param ordering query string false "name or created_at"
// @Success 200 {object} models.ListResponse[models.Customer]
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/customers [get]
func (h *SalesHandler) ListCustomers(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListCustomers(ctx, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetCustomer godoc
// @Summary Get a customer
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/customers/{id} [get]
func (h *SalesHandler) GetCustomer(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	customer, err := h.service.GetCustomer(ctx, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// CreateCustomer godoc
// @Summary Create a customer
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sales.CustomerRequest true "Customer"
// @Success 201 {object} models.Customer
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/customers [post]
func (h *SalesHandler) CreateCustomer(c echo.Context) error {
	var req sales.CustomerRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	customer, err := h.service.CreateCustomer(ctx, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer godoc
// @Summary Update a customer
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Param request body sales.CustomerRequest true "Customer"
// @Success 200 {object} models.Customer
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/customers/{id} [put]
func (h *SalesHandler) UpdateCustomer(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req sales.CustomerRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	customer, err := h.service.UpdateCustomer(ctx, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// DeleteCustomer godoc
// @Summary Delete a customer
// @Description Customers referenced by sales or opportunities cannot be deleted.
// @Tags Sales
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/customers/{id} [delete]
func (h *SalesHandler) DeleteCustomer(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteCustomer(ctx, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CustomerMetrics godoc
// @Summary Purchase metrics of one customer
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} sales.CustomerMetrics
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/customers/{id}/insights [get]
func (h *SalesHandler) CustomerMetrics(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.report(c)
	defer cancel()

	metrics, err := h.service.CustomerMetrics(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}

// ListProducts godoc
// @Summary List products
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search name, sku or description"
// @Param ordering query string false "name, price or stock"
// @Param stock query int false "Exact stock level"
// @Param low_stock query bool false "Only products at or below their minimum stock"
// @Success 200 {object} models.ListResponse[models.Product]
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/products [get]
func (h *SalesHandler) ListProducts(c echo.Context) error {
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var filter sales.ProductFilter
	if filter.Stock, err = optionalInt(c, "stock"); err != nil {
		return errors.FromDomain(c, err)
	}
	if raw := c.QueryParam("low_stock"); raw != "" {
		if filter.LowStock, err = strconv.ParseBool(raw); err != nil {
			return errors.FromDomain(c, domain.NewFieldError("low_stock", "must be true or false"))
		}
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListProducts(ctx, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetProduct godoc
// @Summary Get a product
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/products/{id} [get]
func (h *SalesHandler) GetProduct(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// CreateProduct godoc
// @Summary Create a product
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sales.ProductRequest true "Product"
// @Success 201 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/products [post]
func (h *SalesHandler) CreateProduct(c echo.Context) error {
	var req sales.ProductRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	product, err := h.service.CreateProduct(ctx, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Description The request carries the version it read. A stale version is rejected with 409.
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body sales.ProductRequest true "Product"
// @Success 200 {object} models.Product
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/products/{id} [put]
func (h *SalesHandler) UpdateProduct(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req sales.ProductRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	product, err := h.service.UpdateProduct(ctx, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags Sales
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/products/{id} [delete]
func (h *SalesHandler) DeleteProduct(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	if err := h.service.DeleteProduct(ctx, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListSales godoc
// @Summary List sales
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param search query string false "Search customer name"
// @Param ordering query string false "date or total_amount"
// @Param status query string false "Sale status"
// @Param date query string false "Sale date (YYYY-MM-DD)"
// @Success 200 {object} models.ListResponse[models.Sale]
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/sales [get]
func (h *SalesHandler) ListSales(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	p, err := listParams(c)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	filter := sales.SaleFilter{Status: c.QueryParam("status")}
	if filter.Date, err = optionalDate(c, "date"); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	res, err := h.service.ListSales(ctx, actor, filter, p)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetSale godoc
// @Summary Get a sale with its items
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 200 {object} models.Sale
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/sales/{id} [get]
func (h *SalesHandler) GetSale(c echo.Context) error {
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

	sale, err := h.service.GetSale(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

// CreateSale godoc
// @Summary Create a sale
// @Description A sale created as completed takes its items out of stock.
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sales.SaleRequest true "Sale"
// @Success 201 {object} models.Sale
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/sales [post]
func (h *SalesHandler) CreateSale(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	var req sales.SaleRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	sale, err := h.service.CreateSale(ctx, actor, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusCreated, sale)
}

// UpdateSale godoc
// @Summary Update a sale
// @Description Completing a sale takes stock, cancelling a completed sale returns it.
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Param request body sales.SaleUpdateRequest true "Sale"
// @Success 200 {object} models.Sale
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/sales/{id} [put]
func (h *SalesHandler) UpdateSale(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req sales.SaleUpdateRequest
	if err := bind(c, &req); err != nil {
		return errors.FromDomain(c, err)
	}

	ctx, cancel := h.timeouts.crud(c)
	defer cancel()

	sale, err := h.service.UpdateSale(ctx, actor, id, req)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

// DeleteSale godoc
// @Summary Delete a pending sale
// @Tags Sales
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/sales/{id} [delete]
func (h *SalesHandler) DeleteSale(c echo.Context) error {
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

	if err := h.service.DeleteSale(ctx, actor, id); err != nil {
		return errors.FromDomain(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Totals godoc
// @Summary VAT totals of a sale
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 200 {object} models.Totals
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/sales/{id}/totals [get]
func (h *SalesHandler) Totals(c echo.Context) error {
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

	totals, err := h.service.Totals(ctx, actor, id)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, totals)
}

// ListItems godoc
// @Summary List the items of a sale
// @Tags Sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Success 200 {array} models.SaleItem
// @Failure 404 {object} models.ErrorResponse
// @Router /sales/sales/{id}/items [get]
func (h *SalesHandler) ListItems(c echo.Context) error {
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
// @Summary Add an item to a sale
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Sale ID"
// @Param request body sales.SaleItemRequest true "Item"
// @Success 201 {object} models.SaleItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/sales/{id}/items [post]
func (h *SalesHandler) AddItem(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req sales.SaleItemRequest
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
// @Summary Update a sale item
// @Tags Sales
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Param request body sales.SaleItemRequest true "Item"
// @Success 200 {object} models.SaleItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/items/{id} [put]
func (h *SalesHandler) UpdateItem(c echo.Context) error {
	actor, ok := apimw.Actor(c)
	if !ok {
		return errors.UnauthorizedError(c)
	}
	id, err := idParam(c, "id")
	if err != nil {
		return errors.FromDomain(c, err)
	}
	var req sales.SaleItemRequest
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
// @Summary Delete a sale item
// @Tags Sales
// @Security BearerAuth
// @Param id path int true "Item ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /sales/items/{id} [delete]
func (h *SalesHandler) DeleteItem(c echo.Context) error {
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

// Dashboard godoc
// @Summary Sales dashboard
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} sales.Dashboard
// @Router /sales/dashboard/summary [get]
func (h *SalesHandler) Dashboard(c echo.Context) error {
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
// @Summary Sales report
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} sales.Report
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/dashboard/reports [get]
func (h *SalesHandler) Report(c echo.Context) error {
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
// @Summary Sales analytics
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(30)
// @Success 200 {object} sales.Analytics
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/analytics [get]
func (h *SalesHandler) Analytics(c echo.Context) error {
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

// ProductPerformance godoc
// @Summary Product performance
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(30)
// @Success 200 {object} sales.ProductPerformance
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/product-performance [get]
func (h *SalesHandler) ProductPerformance(c echo.Context) error {
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

	res, err := h.service.ProductPerformance(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CustomerInsights godoc
// @Summary Customer insights
// @Tags Sales Reports
// @Produce json
// @Security BearerAuth
// @Param period query int false "Days to look back" default(365)
// @Success 200 {object} sales.CustomerInsights
// @Failure 400 {object} models.ErrorResponse
// @Router /sales/customer-insights [get]
func (h *SalesHandler) CustomerInsights(c echo.Context) error {
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

	res, err := h.service.CustomerInsights(ctx, actor, w)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
