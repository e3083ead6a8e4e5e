package service

import (
	"context"

	"factory/internal/apperror"
	"factory/internal/model"
	"factory/internal/repository"
)

// --- DTOs ---

type SupplierRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	ContactPerson string `json:"contact_person" binding:"max=100"`
	Phone         string `json:"phone" binding:"max=20"`
	Email         string `json:"email" binding:"omitempty,email,max=100"`
	Address       string `json:"address"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type CustomerRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	ContactPerson string `json:"contact_person" binding:"max=100"`
	Phone         string `json:"phone" binding:"max=20"`
	Email         string `json:"email" binding:"omitempty,email,max=100"`
	Address       string `json:"address"`
	Type          string `json:"type" binding:"omitempty,oneof=retail wholesale"`
	Status        string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// --- Suppliers ---

type SupplierService interface {
	Create(ctx context.Context, actor uint, req SupplierRequest) (*model.Supplier, error)
	Get(ctx context.Context, id uint) (*model.Supplier, error)
	List(ctx context.Context, search, status string, page, limit int) (*ListResult[model.Supplier], error)
	ListAll(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, actor uint, id uint, req SupplierRequest) (*model.Supplier, error)
	// Delete refuses suppliers that still have materials or open purchase orders.
	Delete(ctx context.Context, actor uint, id uint) error
}

type supplierService struct {
	txManager    repository.TransactionManager
	supplierRepo repository.SupplierRepository
	materialRepo repository.MaterialRepository
	poRepo       repository.PurchaseOrderRepository
	auditRepo    repository.AuditRepository
}

func NewSupplierService(
	txManager repository.TransactionManager,
	supplierRepo repository.SupplierRepository,
	materialRepo repository.MaterialRepository,
	poRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditRepository,
) SupplierService {
	return &supplierService{
		txManager:    txManager,
		supplierRepo: supplierRepo,
		materialRepo: materialRepo,
		poRepo:       poRepo,
		auditRepo:    auditRepo,
	}
}

func (s *supplierService) Create(ctx context.Context, actor uint, req SupplierRequest) (*model.Supplier, error) {
	supplier := &model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Status:        defaultStatus(req.Status),
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.supplierRepo.Create(txCtx, supplier); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateSupplier, "supplier", supplier.ID, supplier.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) Get(ctx context.Context, id uint) (*model.Supplier, error) {
	return s.supplierRepo.FindByID(ctx, id)
}

func (s *supplierService) List(ctx context.Context, search, status string, page, limit int) (*ListResult[model.Supplier], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.supplierRepo.List(ctx, search, status, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.Supplier]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *supplierService) ListAll(ctx context.Context) ([]model.Supplier, error) {
	return s.supplierRepo.ListAll(ctx)
}

func (s *supplierService) Update(ctx context.Context, actor uint, id uint, req SupplierRequest) (*model.Supplier, error) {
	var supplier *model.Supplier
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		supplier, err = s.supplierRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		supplier.Name = req.Name
		supplier.ContactPerson = req.ContactPerson
		supplier.Phone = req.Phone
		supplier.Email = req.Email
		supplier.Address = req.Address
		if req.Status != "" {
			supplier.Status = req.Status
		}
		if err := s.supplierRepo.Update(txCtx, supplier); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateSupplier, "supplier", supplier.ID, supplier.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		supplier, err := s.supplierRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		n, err := s.materialRepo.CountBySupplier(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("supplier", "it still supplies materials")
		}
		n, err = s.poRepo.CountBySupplier(txCtx, id, []string{model.POStatusPending, model.POStatusApproved})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("supplier", "it has pending or approved purchase orders")
		}
		if err := s.supplierRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteSupplier, "supplier", supplier.ID, supplier.Name, nil)
	})
}

// --- Customers ---

type CustomerService interface {
	Create(ctx context.Context, actor uint, req CustomerRequest) (*model.Customer, error)
	Get(ctx context.Context, id uint) (*model.Customer, error)
	List(ctx context.Context, search, customerType, status string, page, limit int) (*ListResult[model.Customer], error)
	ListAll(ctx context.Context) ([]model.Customer, error)
	Update(ctx context.Context, actor uint, id uint, req CustomerRequest) (*model.Customer, error)
	// Delete refuses customers with pending or confirmed sales orders.
	Delete(ctx context.Context, actor uint, id uint) error
}

type customerService struct {
	txManager    repository.TransactionManager
	customerRepo repository.CustomerRepository
	soRepo       repository.SalesOrderRepository
	auditRepo    repository.AuditRepository
}

func NewCustomerService(
	txManager repository.TransactionManager,
	customerRepo repository.CustomerRepository,
	soRepo repository.SalesOrderRepository,
	auditRepo repository.AuditRepository,
) CustomerService {
	return &customerService{
		txManager:    txManager,
		customerRepo: customerRepo,
		soRepo:       soRepo,
		auditRepo:    auditRepo,
	}
}

func (s *customerService) Create(ctx context.Context, actor uint, req CustomerRequest) (*model.Customer, error) {
	customerType := req.Type
	if customerType == "" {
		customerType = model.CustomerTypeRetail
	}
	customer := &model.Customer{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		Type:          customerType,
		Status:        defaultStatus(req.Status),
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.customerRepo.Create(txCtx, customer); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateCustomer, "customer", customer.ID, customer.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) Get(ctx context.Context, id uint) (*model.Customer, error) {
	return s.customerRepo.FindByID(ctx, id)
}

func (s *customerService) List(ctx context.Context, search, customerType, status string, page, limit int) (*ListResult[model.Customer], error) {
	page, limit = normalizePage(page, limit)
	items, total, err := s.customerRepo.List(ctx, search, customerType, status, page, limit)
	if err != nil {
		return nil, err
	}
	return &ListResult[model.Customer]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *customerService) ListAll(ctx context.Context) ([]model.Customer, error) {
	return s.customerRepo.ListAll(ctx)
}

func (s *customerService) Update(ctx context.Context, actor uint, id uint, req CustomerRequest) (*model.Customer, error) {
	var customer *model.Customer
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		customer, err = s.customerRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		customer.Name = req.Name
		customer.ContactPerson = req.ContactPerson
		customer.Phone = req.Phone
		customer.Email = req.Email
		customer.Address = req.Address
		if req.Type != "" {
			customer.Type = req.Type
		}
		if req.Status != "" {
			customer.Status = req.Status
		}
		if err := s.customerRepo.Update(txCtx, customer); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateCustomer, "customer", customer.ID, customer.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) Delete(ctx context.Context, actor uint, id uint) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.customerRepo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		n, err := s.soRepo.CountByCustomer(txCtx, id, []string{model.SOStatusPending, model.SOStatusConfirmed})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialIntegrity("customer", "it has pending or confirmed sales orders")
		}
		if err := s.customerRepo.Delete(txCtx, id); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteCustomer, "customer", customer.ID, customer.Name, nil)
	})
}
