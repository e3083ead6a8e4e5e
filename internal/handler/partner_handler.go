package handler

import (
	"net/http"

	"factory/internal/middleware"
	"factory/internal/service"
	"factory/pkg/pagination"
	"factory/pkg/response"

	"github.com/gin-gonic/gin"
)

// PartnerHandler serves suppliers and customers.
type PartnerHandler struct {
	supplierService service.SupplierService
	customerService service.CustomerService
	exportService   service.ExportService
	auth            *middleware.Authenticator
}

func NewPartnerHandler(supplierService service.SupplierService, customerService service.CustomerService, exportService service.ExportService, auth *middleware.Authenticator) *PartnerHandler {
	return &PartnerHandler{
		supplierService: supplierService,
		customerService: customerService,
		exportService:   exportService,
		auth:            auth,
	}
}

func (h *PartnerHandler) RegisterRoutes(router *gin.RouterGroup) {
	suppliers := router.Group("/suppliers")
	{
		suppliers.GET("", h.auth.RequirePermission("suppliers.read"), h.ListSuppliers)
		suppliers.GET("/all", h.auth.RequirePermission("suppliers.read"), h.AllSuppliers)
		suppliers.GET("/export", h.auth.RequirePermission("reports.export"), h.ExportSuppliers)
		suppliers.GET("/:id", h.auth.RequirePermission("suppliers.read"), h.GetSupplier)
		suppliers.POST("", h.auth.RequirePermission("suppliers.write"), h.CreateSupplier)
		suppliers.PUT("/:id", h.auth.RequirePermission("suppliers.write"), h.UpdateSupplier)
		suppliers.DELETE("/:id", h.auth.RequirePermission("suppliers.delete"), h.DeleteSupplier)
	}

	customers := router.Group("/customers")
	{
		customers.GET("", h.auth.RequirePermission("customers.read"), h.ListCustomers)
		customers.GET("/all", h.auth.RequirePermission("customers.read"), h.AllCustomers)
		customers.GET("/export", h.auth.RequirePermission("reports.export"), h.ExportCustomers)
		customers.GET("/:id", h.auth.RequirePermission("customers.read"), h.GetCustomer)
		customers.POST("", h.auth.RequirePermission("customers.write"), h.CreateCustomer)
		customers.PUT("/:id", h.auth.RequirePermission("customers.write"), h.UpdateCustomer)
		customers.DELETE("/:id", h.auth.RequirePermission("customers.delete"), h.DeleteCustomer)
	}
}

// ListSuppliers handles GET /suppliers
// @Summary      List suppliers
// @Tags         suppliers
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name, code or contact"
// @Param        status  query     string  false  "active or inactive"
// @Success      200     {object}  response.Response{data=object}
// @Router       /suppliers [get]
func (h *PartnerHandler) ListSuppliers(c *gin.Context) {
	p := pagination.Parse(c)
	res, err := h.supplierService.List(c.Request.Context(), c.Query("search"), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AllSuppliers handles GET /suppliers/all, used by dropdowns
func (h *PartnerHandler) AllSuppliers(c *gin.Context) {
	items, err := h.supplierService.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ExportSuppliers handles GET /suppliers/export
// @Summary      Export suppliers
// @Tags         suppliers
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /suppliers/export [get]
func (h *PartnerHandler) ExportSuppliers(c *gin.Context) {
	f, err := h.exportService.Suppliers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, f, "suppliers")
}

// GetSupplier handles GET /suppliers/:id
// @Summary      Get supplier
// @Tags         suppliers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=model.Supplier}
// @Failure      404  {object}  response.Response
// @Router       /suppliers/{id} [get]
func (h *PartnerHandler) GetSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s, err := h.supplierService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, s))
}

// CreateSupplier handles POST /suppliers
// @Summary      Create supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SupplierRequest  true  "Supplier"
// @Success      201      {object}  response.Response{data=model.Supplier}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /suppliers [post]
func (h *PartnerHandler) CreateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.supplierService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, s))
}

// UpdateSupplier handles PUT /suppliers/:id
// @Summary      Update supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Supplier ID"
// @Param        payload  body      service.SupplierRequest  true  "Supplier"
// @Success      200      {object}  response.Response{data=model.Supplier}
// @Failure      400      {object}  response.Response
// @Router       /suppliers/{id} [put]
func (h *PartnerHandler) UpdateSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s, err := h.supplierService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, s))
}

// DeleteSupplier handles DELETE /suppliers/:id
// @Summary      Delete supplier
// @Description  Refused while the supplier still has materials or open purchase orders
// @Tags         suppliers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Supplier ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /suppliers/{id} [delete]
func (h *PartnerHandler) DeleteSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.supplierService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Supplier deleted successfully"))
}

// ListCustomers handles GET /customers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Param        search         query     string  false  "Name, code or contact"
// @Param        customer_type  query     string  false  "retail or wholesale"
// @Param        status         query     string  false  "active or inactive"
// @Success      200            {object}  response.Response{data=object}
// @Router       /customers [get]
func (h *PartnerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)
	res, err := h.customerService.List(c.Request.Context(), c.Query("search"), c.Query("customer_type"), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// AllCustomers handles GET /customers/all
func (h *PartnerHandler) AllCustomers(c *gin.Context) {
	items, err := h.customerService.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ExportCustomers handles GET /customers/export
// @Summary      Export customers
// @Tags         customers
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200  {file}  file
// @Router       /customers/export [get]
func (h *PartnerHandler) ExportCustomers(c *gin.Context) {
	f, err := h.exportService.Customers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	sendWorkbook(c, f, "customers")
}

// GetCustomer handles GET /customers/:id
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /customers/{id} [get]
func (h *PartnerHandler) GetCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cust, err := h.customerService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cust))
}

// CreateCustomer handles POST /customers
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /customers [post]
func (h *PartnerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cust, err := h.customerService.Create(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cust))
}

// UpdateCustomer handles PUT /customers/:id
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                      true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      200      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Router       /customers/{id} [put]
func (h *PartnerHandler) UpdateCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cust, err := h.customerService.Update(c.Request.Context(), middleware.CurrentUserID(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cust))
}

// DeleteCustomer handles DELETE /customers/:id
// @Summary      Delete customer
// @Description  Refused while the customer has pending or confirmed sales orders
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /customers/{id} [delete]
func (h *PartnerHandler) DeleteCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.customerService.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Customer deleted successfully"))
}
