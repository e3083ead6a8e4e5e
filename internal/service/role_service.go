package service

import (
	"context"
	"fmt"
	"strings"

	"factory/internal/apperror"
	"factory/internal/model"
	"factory/internal/repository"
)

type UpdateRolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// defaultPermissions lists every permission code with its display name.
var defaultPermissions = []model.Permission{
	{Code: "materials.read", Name: "View materials", Group: "materials"},
	{Code: "materials.write", Name: "Create and edit materials", Group: "materials"},
	{Code: "materials.delete", Name: "Delete materials", Group: "materials"},
	{Code: "products.read", Name: "View products", Group: "products"},
	{Code: "products.write", Name: "Create and edit products", Group: "products"},
	{Code: "products.delete", Name: "Delete products", Group: "products"},
	{Code: "suppliers.read", Name: "View suppliers", Group: "partners"},
	{Code: "suppliers.write", Name: "Create and edit suppliers", Group: "partners"},
	{Code: "suppliers.delete", Name: "Delete suppliers", Group: "partners"},
	{Code: "customers.read", Name: "View customers", Group: "partners"},
	{Code: "customers.write", Name: "Create and edit customers", Group: "partners"},
	{Code: "customers.delete", Name: "Delete customers", Group: "partners"},
	{Code: "bom.read", Name: "View bills of materials", Group: "production"},
	{Code: "bom.write", Name: "Edit bills of materials", Group: "production"},
	{Code: "bom.delete", Name: "Delete bill of materials lines", Group: "production"},
	{Code: "purchase_orders.read", Name: "View purchase orders", Group: "purchasing"},
	{Code: "purchase_orders.write", Name: "Create and edit purchase orders", Group: "purchasing"},
	{Code: "purchase_orders.delete", Name: "Delete purchase orders", Group: "purchasing"},
	{Code: "purchase_orders.approve", Name: "Approve and cancel purchase orders", Group: "purchasing"},
	{Code: "purchase_orders.receive", Name: "Receive purchase orders", Group: "purchasing"},
	{Code: "work_orders.read", Name: "View work orders", Group: "production"},
	{Code: "work_orders.write", Name: "Create and run work orders", Group: "production"},
	{Code: "work_orders.delete", Name: "Delete work orders", Group: "production"},
	{Code: "sales_orders.read", Name: "View sales orders", Group: "sales"},
	{Code: "sales_orders.write", Name: "Create and run sales orders", Group: "sales"},
	{Code: "sales_orders.delete", Name: "Delete sales orders", Group: "sales"},
	{Code: "stock.read", Name: "View stock and movements", Group: "stock"},
	{Code: "stock.adjust", Name: "Adjust stock", Group: "stock"},
	{Code: "dashboard.read", Name: "View dashboard", Group: "reports"},
	{Code: "reports.export", Name: "Export spreadsheets", Group: "reports"},
	{Code: "audit.read", Name: "View audit log", Group: "admin"},
	{Code: "users.read", Name: "View users", Group: "admin"},
	{Code: "users.write", Name: "Create and edit users", Group: "admin"},
	{Code: "users.delete", Name: "Delete users", Group: "admin"},
	{Code: "roles.manage", Name: "Manage role permissions", Group: "admin"},
}

var adminOnlyGroups = map[string]bool{"admin": true}

// DefaultGrants returns the permission codes each built-in role starts with.
// Admin gets everything. Staff gets read and write plus receiving. Viewer
// gets read access outside the admin group.
func DefaultGrants() map[string][]string {
	grants := map[string][]string{}
	for _, p := range defaultPermissions {
		grants[model.RoleAdmin] = append(grants[model.RoleAdmin], p.Code)
		if adminOnlyGroups[p.Group] {
			continue
		}
		switch {
		case strings.HasSuffix(p.Code, ".read"):
			grants[model.RoleStaff] = append(grants[model.RoleStaff], p.Code)
			grants[model.RoleViewer] = append(grants[model.RoleViewer], p.Code)
		case strings.HasSuffix(p.Code, ".write"), p.Code == "purchase_orders.receive":
			grants[model.RoleStaff] = append(grants[model.RoleStaff], p.Code)
		}
	}
	return grants
}

type RoleService interface {
	ListRoles(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	PermissionsForRole(ctx context.Context, roleName string) ([]string, error)
	UpdateRolePermissions(ctx context.Context, actor uint, roleName string, req UpdateRolePermissionsRequest) (*model.Role, error)
	// Seed creates the built-in roles and permissions. Existing grants are
	// left alone so edits made by an administrator survive restarts.
	Seed(ctx context.Context) error
}

type roleService struct {
	txManager repository.TransactionManager
	repo      repository.RoleRepository
	auditRepo repository.AuditRepository
}

func NewRoleService(txManager repository.TransactionManager, repo repository.RoleRepository, auditRepo repository.AuditRepository) RoleService {
	return &roleService{txManager: txManager, repo: repo, auditRepo: auditRepo}
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.ListAll(ctx)
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *roleService) PermissionsForRole(ctx context.Context, roleName string) ([]string, error) {
	return s.repo.PermissionCodes(ctx, roleName)
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, actor uint, roleName string, req UpdateRolePermissionsRequest) (*model.Role, error) {
	if roleName == model.RoleAdmin {
		return nil, apperror.Validation("admin permissions cannot be changed")
	}
	known := make(map[string]bool, len(defaultPermissions))
	for _, p := range defaultPermissions {
		known[p.Code] = true
	}
	for _, code := range req.Permissions {
		if !known[code] {
			return nil, apperror.Validation("unknown permission %q", code)
		}
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.repo.FindByName(txCtx, roleName)
		if err != nil {
			return err
		}
		if err := s.repo.ReplacePermissions(txCtx, role.ID, req.Permissions); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateRole, "role", role.ID, role.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByName(ctx, roleName)
}

func (s *roleService) Seed(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range defaultPermissions {
			perm := defaultPermissions[i]
			if err := s.repo.FindOrCreatePermission(txCtx, &perm); err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", perm.Code, err)
			}
		}

		descriptions := map[string]string{
			model.RoleAdmin:  "Full access",
			model.RoleStaff:  "Day-to-day operations",
			model.RoleViewer: "Read-only access",
		}
		for name, codes := range DefaultGrants() {
			role := model.Role{Name: name, Description: descriptions[name], IsSystem: true}
			if err := s.repo.FindOrCreateRole(txCtx, &role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", name, err)
			}
			current, err := s.repo.PermissionCodes(txCtx, name)
			if err != nil {
				return err
			}
			if len(current) > 0 && name != model.RoleAdmin {
				continue
			}
			if err := s.repo.ReplacePermissions(txCtx, role.ID, codes); err != nil {
				return fmt.Errorf("failed to grant permissions to %s: %w", name, err)
			}
		}
		return nil
	})
}
