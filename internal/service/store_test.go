package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"factory/internal/apperror"
	"factory/internal/event"
	"factory/internal/model"
	"factory/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memStore backs the fake repositories. A transaction snapshots it and
// restores the snapshot when the callback fails, which is how the tests
// observe rollback.
type memStore struct {
	materials map[uint]model.Material
	products  map[uint]model.Product
	boms      map[uint]model.BOM
	logs      []model.StockLog
	pos       map[uint]model.PurchaseOrder
	wos       map[uint]model.WorkOrder
	sos       map[uint]model.SalesOrder
	suppliers map[uint]model.Supplier
	customers map[uint]model.Customer
	audits    []model.AuditLog
	nextID    uint

	// failSetStock makes SetStock fail for the given material ids.
	failSetStock map[uint]error
}

func newMemStore() *memStore {
	return &memStore{
		materials:    map[uint]model.Material{},
		products:     map[uint]model.Product{},
		boms:         map[uint]model.BOM{},
		pos:          map[uint]model.PurchaseOrder{},
		wos:          map[uint]model.WorkOrder{},
		sos:          map[uint]model.SalesOrder{},
		suppliers:    map[uint]model.Supplier{},
		customers:    map[uint]model.Customer{},
		failSetStock: map[uint]error{},
		nextID:       1000,
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) snapshot() *memStore {
	return &memStore{
		materials:    maps.Clone(s.materials),
		products:     maps.Clone(s.products),
		boms:         maps.Clone(s.boms),
		logs:         slices.Clone(s.logs),
		pos:          maps.Clone(s.pos),
		wos:          maps.Clone(s.wos),
		sos:          maps.Clone(s.sos),
		suppliers:    maps.Clone(s.suppliers),
		customers:    maps.Clone(s.customers),
		audits:       slices.Clone(s.audits),
		nextID:       s.nextID,
		failSetStock: s.failSetStock,
	}
}

func (s *memStore) restore(snap *memStore) {
	*s = *snap
}

// logsFor returns ledger rows pointing at one document.
func (s *memStore) logsFor(ref model.ReferenceType, id uint) []model.StockLog {
	var out []model.StockLog
	for _, l := range s.logs {
		if l.ReferenceType != nil && *l.ReferenceType == ref && l.ReferenceID != nil && *l.ReferenceID == id {
			out = append(out, l)
		}
	}
	return out
}

type fakeTxManager struct {
	store   *memStore
	commits int
}

func (m *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	snap := m.store.snapshot()
	if err := fn(repository.WithTx(ctx, nil)); err != nil {
		m.store.restore(snap)
		return err
	}
	m.commits++
	return nil
}

var errNotInTx = errors.New("row lock requested outside a transaction")

type fakeMaterialRepo struct{ s *memStore }

func (r fakeMaterialRepo) LockStock(ctx context.Context, id uint) (*repository.StockRow, error) {
	if !repository.InTx(ctx) {
		return nil, errNotInTx
	}
	m, ok := r.s.materials[id]
	if !ok {
		return nil, apperror.NotFound("material", id)
	}
	return &repository.StockRow{ID: m.ID, SKU: m.SKU, Name: m.Name, Stock: m.Stock}, nil
}

func (r fakeMaterialRepo) SetStock(_ context.Context, id uint, stock int) error {
	if err := r.s.failSetStock[id]; err != nil {
		return err
	}
	m, ok := r.s.materials[id]
	if !ok {
		return apperror.NotFound("material", id)
	}
	if stock < 0 {
		return errors.New("check constraint stock >= 0 violated")
	}
	m.Stock = stock
	r.s.materials[id] = m
	return nil
}

func (r fakeMaterialRepo) Create(_ context.Context, m *model.Material) error {
	for _, existing := range r.s.materials {
		if existing.SKU == m.SKU {
			return apperror.Duplicate("material", "sku", m.SKU)
		}
	}
	m.ID = r.s.id()
	r.s.materials[m.ID] = *m
	return nil
}

func (r fakeMaterialRepo) Update(_ context.Context, m *model.Material) error {
	cur, ok := r.s.materials[m.ID]
	if !ok {
		return apperror.NotFound("material", m.ID)
	}
	m.Stock = cur.Stock
	r.s.materials[m.ID] = *m
	return nil
}

func (r fakeMaterialRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.materials, id)
	return nil
}

func (r fakeMaterialRepo) FindByID(_ context.Context, id uint) (*model.Material, error) {
	m, ok := r.s.materials[id]
	if !ok {
		return nil, apperror.NotFound("material", id)
	}
	return &m, nil
}

func (r fakeMaterialRepo) FindByIDs(_ context.Context, ids []uint) ([]model.Material, error) {
	var out []model.Material
	for _, id := range ids {
		if m, ok := r.s.materials[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeMaterialRepo) List(ctx context.Context, filter repository.ItemFilter, page, limit int) ([]model.Material, int64, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Material
	for _, m := range all {
		if filter.Search != "" && !strings.Contains(strings.ToLower(m.Name+" "+m.SKU), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		out = append(out, m)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakeMaterialRepo) ListAll(context.Context) ([]model.Material, error) {
	out := slices.Collect(maps.Values(r.s.materials))
	slices.SortFunc(out, func(a, b model.Material) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r fakeMaterialRepo) ListLowStock(ctx context.Context) ([]model.Material, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Material
	for _, m := range all {
		if m.Status == model.StatusActive && m.Stock <= m.MinStock {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeMaterialRepo) CountBySupplier(_ context.Context, supplierID uint) (int64, error) {
	var n int64
	for _, m := range r.s.materials {
		if m.SupplierID != nil && *m.SupplierID == supplierID {
			n++
		}
	}
	return n, nil
}

type fakeProductRepo struct{ s *memStore }

func (r fakeProductRepo) LockStock(ctx context.Context, id uint) (*repository.StockRow, error) {
	if !repository.InTx(ctx) {
		return nil, errNotInTx
	}
	p, ok := r.s.products[id]
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	return &repository.StockRow{ID: p.ID, SKU: p.SKU, Name: p.Name, Stock: p.Stock}, nil
}

func (r fakeProductRepo) SetStock(_ context.Context, id uint, stock int) error {
	p, ok := r.s.products[id]
	if !ok {
		return apperror.NotFound("product", id)
	}
	if stock < 0 {
		return errors.New("check constraint stock >= 0 violated")
	}
	p.Stock = stock
	r.s.products[id] = p
	return nil
}

func (r fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return apperror.Duplicate("product", "sku", p.SKU)
		}
	}
	p.ID = r.s.id()
	r.s.products[p.ID] = *p
	return nil
}

func (r fakeProductRepo) Update(_ context.Context, p *model.Product) error {
	cur, ok := r.s.products[p.ID]
	if !ok {
		return apperror.NotFound("product", p.ID)
	}
	p.Stock = cur.Stock
	r.s.products[p.ID] = *p
	return nil
}

func (r fakeProductRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.products, id)
	return nil
}

func (r fakeProductRepo) FindByID(_ context.Context, id uint) (*model.Product, error) {
	p, ok := r.s.products[id]
	if !ok {
		return nil, apperror.NotFound("product", id)
	}
	return &p, nil
}

func (r fakeProductRepo) FindByIDs(_ context.Context, ids []uint) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakeProductRepo) List(ctx context.Context, filter repository.ProductFilter, page, limit int) ([]model.Product, int64, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Product
	for _, p := range all {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		out = append(out, p)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakeProductRepo) ListAll(context.Context) ([]model.Product, error) {
	out := slices.Collect(maps.Values(r.s.products))
	slices.SortFunc(out, func(a, b model.Product) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (r fakeProductRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Product
	for _, p := range all {
		if p.Status == model.StatusActive && p.Stock <= p.MinStock {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeBOMRepo struct{ s *memStore }

func (r fakeBOMRepo) Create(_ context.Context, b *model.BOM) error {
	for _, existing := range r.s.boms {
		if existing.ProductID == b.ProductID && existing.MaterialID == b.MaterialID {
			return apperror.Duplicate("bom", "material_id", "")
		}
	}
	b.ID = r.s.id()
	r.s.boms[b.ID] = *b
	return nil
}

func (r fakeBOMRepo) Update(_ context.Context, b *model.BOM) error {
	r.s.boms[b.ID] = *b
	return nil
}

func (r fakeBOMRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.boms, id)
	return nil
}

func (r fakeBOMRepo) FindByID(_ context.Context, id uint) (*model.BOM, error) {
	b, ok := r.s.boms[id]
	if !ok {
		return nil, apperror.NotFound("bom", id)
	}
	return &b, nil
}

func (r fakeBOMRepo) ListByProduct(_ context.Context, productID uint) ([]model.BOM, error) {
	var out []model.BOM
	for _, b := range r.s.boms {
		if b.ProductID != productID {
			continue
		}
		if m, ok := r.s.materials[b.MaterialID]; ok {
			b.Material = &m
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b model.BOM) int { return int(a.MaterialID) - int(b.MaterialID) })
	return out, nil
}

func (r fakeBOMRepo) CountByMaterial(_ context.Context, materialID uint) (int64, error) {
	var n int64
	for _, b := range r.s.boms {
		if b.MaterialID == materialID {
			n++
		}
	}
	return n, nil
}

func (r fakeBOMRepo) CountByProduct(_ context.Context, productID uint) (int64, error) {
	var n int64
	for _, b := range r.s.boms {
		if b.ProductID == productID {
			n++
		}
	}
	return n, nil
}

type fakeStockLogRepo struct{ s *memStore }

func (r fakeStockLogRepo) Create(_ context.Context, entry *model.StockLog) error {
	entry.ID = r.s.id()
	entry.CreatedAt = time.Now()
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r fakeStockLogRepo) List(_ context.Context, filter repository.StockLogFilter, page, limit int) ([]repository.StockLogView, int64, error) {
	var out []repository.StockLogView
	for i := len(r.s.logs) - 1; i >= 0; i-- {
		l := r.s.logs[i]
		if filter.ItemType != "" && l.ItemType != filter.ItemType {
			continue
		}
		if filter.ItemID != 0 && l.ItemID != filter.ItemID {
			continue
		}
		if filter.MovementType != "" && l.MovementType != filter.MovementType {
			continue
		}
		out = append(out, repository.StockLogView{
			ID:            l.ID,
			ItemType:      l.ItemType,
			ItemID:        l.ItemID,
			MovementType:  l.MovementType,
			Quantity:      l.Quantity,
			ReferenceType: l.ReferenceType,
			ReferenceID:   l.ReferenceID,
			Notes:         l.Notes,
			CreatedBy:     l.CreatedBy,
			CreatedAt:     l.CreatedAt,
		})
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakeStockLogRepo) CountByItem(_ context.Context, kind model.ItemKind, itemID uint) (int64, error) {
	var n int64
	for _, l := range r.s.logs {
		if l.ItemType == kind && l.ItemID == itemID {
			n++
		}
	}
	return n, nil
}

type fakePORepo struct{ s *memStore }

func (r fakePORepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	if exists, _ := r.NumberExists(context.Background(), po.PONumber); exists {
		return apperror.Duplicate("purchase order", "po_number", po.PONumber)
	}
	po.ID = r.s.id()
	po.Items = r.withIDs(po.ID, po.Items)
	r.s.pos[po.ID] = *po
	return nil
}

func (r fakePORepo) withIDs(poID uint, items []model.POItem) []model.POItem {
	out := slices.Clone(items)
	for i := range out {
		out[i].ID = r.s.id()
		out[i].POID = poID
	}
	return out
}

func (r fakePORepo) FindByID(_ context.Context, id uint) (*model.PurchaseOrder, error) {
	po, ok := r.s.pos[id]
	if !ok {
		return nil, apperror.NotFound("purchase order", id)
	}
	po.Items = slices.Clone(po.Items)
	return &po, nil
}

func (r fakePORepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.PurchaseOrder, error) {
	if !repository.InTx(ctx) {
		return nil, errNotInTx
	}
	return r.FindByID(ctx, id)
}

func (r fakePORepo) List(_ context.Context, filter repository.OrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var out []model.PurchaseOrder
	for _, po := range r.s.pos {
		if filter.Status != "" && po.Status != filter.Status {
			continue
		}
		out = append(out, po)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakePORepo) UpdateHeader(_ context.Context, po *model.PurchaseOrder) error {
	for id, other := range r.s.pos {
		if id != po.ID && other.PONumber == po.PONumber {
			return apperror.Duplicate("purchase order", "po_number", po.PONumber)
		}
	}
	cur := r.s.pos[po.ID]
	items := cur.Items
	cur = *po
	cur.Items = items
	r.s.pos[po.ID] = cur
	return nil
}

func (r fakePORepo) ReplaceItems(_ context.Context, poID uint, items []model.POItem) error {
	po := r.s.pos[poID]
	po.Items = r.withIDs(poID, items)
	r.s.pos[poID] = po
	return nil
}

func (r fakePORepo) UpdateStatus(_ context.Context, id uint, status string) error {
	po, ok := r.s.pos[id]
	if !ok {
		return apperror.NotFound("purchase order", id)
	}
	po.Status = status
	r.s.pos[id] = po
	return nil
}

func (r fakePORepo) Delete(_ context.Context, id uint) error {
	delete(r.s.pos, id)
	return nil
}

func (r fakePORepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, po := range r.s.pos {
		if po.PONumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r fakePORepo) CountBySupplier(_ context.Context, supplierID uint, statuses []string) (int64, error) {
	var n int64
	for _, po := range r.s.pos {
		if po.SupplierID == supplierID && slices.Contains(statuses, po.Status) {
			n++
		}
	}
	return n, nil
}

func (r fakePORepo) CountItemsByMaterial(_ context.Context, materialID uint, statuses []string) (int64, error) {
	var n int64
	for _, po := range r.s.pos {
		if !slices.Contains(statuses, po.Status) {
			continue
		}
		for _, it := range po.Items {
			if it.MaterialID == materialID {
				n++
			}
		}
	}
	return n, nil
}

type fakeWORepo struct{ s *memStore }

func (r fakeWORepo) Create(_ context.Context, wo *model.WorkOrder) error {
	wo.ID = r.s.id()
	r.s.wos[wo.ID] = *wo
	return nil
}

func (r fakeWORepo) FindByID(_ context.Context, id uint) (*model.WorkOrder, error) {
	wo, ok := r.s.wos[id]
	if !ok {
		return nil, apperror.NotFound("work order", id)
	}
	return &wo, nil
}

func (r fakeWORepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.WorkOrder, error) {
	if !repository.InTx(ctx) {
		return nil, errNotInTx
	}
	return r.FindByID(ctx, id)
}

func (r fakeWORepo) List(_ context.Context, filter repository.OrderFilter, page, limit int) ([]model.WorkOrder, int64, error) {
	var out []model.WorkOrder
	for _, wo := range r.s.wos {
		if filter.Status != "" && wo.Status != filter.Status {
			continue
		}
		out = append(out, wo)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakeWORepo) Update(_ context.Context, wo *model.WorkOrder) error {
	for id, other := range r.s.wos {
		if id != wo.ID && other.WONumber == wo.WONumber {
			return apperror.Duplicate("work order", "wo_number", wo.WONumber)
		}
	}
	r.s.wos[wo.ID] = *wo
	return nil
}

func (r fakeWORepo) Delete(_ context.Context, id uint) error {
	delete(r.s.wos, id)
	return nil
}

func (r fakeWORepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, wo := range r.s.wos {
		if wo.WONumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeWORepo) CountByProduct(_ context.Context, productID uint, statuses []string) (int64, error) {
	var n int64
	for _, wo := range r.s.wos {
		if wo.ProductID == productID && slices.Contains(statuses, wo.Status) {
			n++
		}
	}
	return n, nil
}

type fakeSORepo struct{ s *memStore }

func (r fakeSORepo) Create(_ context.Context, so *model.SalesOrder) error {
	so.ID = r.s.id()
	so.Items = r.withIDs(so.ID, so.Items)
	r.s.sos[so.ID] = *so
	return nil
}

func (r fakeSORepo) withIDs(soID uint, items []model.SOItem) []model.SOItem {
	out := slices.Clone(items)
	for i := range out {
		out[i].ID = r.s.id()
		out[i].SOID = soID
	}
	return out
}

func (r fakeSORepo) FindByID(_ context.Context, id uint) (*model.SalesOrder, error) {
	so, ok := r.s.sos[id]
	if !ok {
		return nil, apperror.NotFound("sales order", id)
	}
	so.Items = slices.Clone(so.Items)
	return &so, nil
}

func (r fakeSORepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.SalesOrder, error) {
	if !repository.InTx(ctx) {
		return nil, errNotInTx
	}
	return r.FindByID(ctx, id)
}

func (r fakeSORepo) List(_ context.Context, filter repository.OrderFilter, page, limit int) ([]model.SalesOrder, int64, error) {
	var out []model.SalesOrder
	for _, so := range r.s.sos {
		if filter.Status != "" && so.Status != filter.Status {
			continue
		}
		out = append(out, so)
	}
	return paginate(out, page, limit), int64(len(out)), nil
}

func (r fakeSORepo) UpdateHeader(_ context.Context, so *model.SalesOrder) error {
	for id, other := range r.s.sos {
		if id != so.ID && other.SONumber == so.SONumber {
			return apperror.Duplicate("sales order", "so_number", so.SONumber)
		}
	}
	cur := r.s.sos[so.ID]
	items := cur.Items
	cur = *so
	cur.Items = items
	r.s.sos[so.ID] = cur
	return nil
}

func (r fakeSORepo) ReplaceItems(_ context.Context, soID uint, items []model.SOItem) error {
	so := r.s.sos[soID]
	so.Items = r.withIDs(soID, items)
	r.s.sos[soID] = so
	return nil
}

func (r fakeSORepo) UpdateStatus(_ context.Context, id uint, status string) error {
	so, ok := r.s.sos[id]
	if !ok {
		return apperror.NotFound("sales order", id)
	}
	so.Status = status
	r.s.sos[id] = so
	return nil
}

func (r fakeSORepo) Delete(_ context.Context, id uint) error {
	delete(r.s.sos, id)
	return nil
}

func (r fakeSORepo) NumberExists(_ context.Context, number string) (bool, error) {
	for _, so := range r.s.sos {
		if so.SONumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeSORepo) CountByCustomer(_ context.Context, customerID uint, statuses []string) (int64, error) {
	var n int64
	for _, so := range r.s.sos {
		if so.CustomerID == customerID && slices.Contains(statuses, so.Status) {
			n++
		}
	}
	return n, nil
}

func (r fakeSORepo) CountItemsByProduct(_ context.Context, productID uint, statuses []string) (int64, error) {
	var n int64
	for _, so := range r.s.sos {
		if !slices.Contains(statuses, so.Status) {
			continue
		}
		for _, it := range so.Items {
			if it.ProductID == productID {
				n++
			}
		}
	}
	return n, nil
}

type fakeSupplierRepo struct{ s *memStore }

func (r fakeSupplierRepo) Create(_ context.Context, sup *model.Supplier) error {
	sup.ID = r.s.id()
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r fakeSupplierRepo) Update(_ context.Context, sup *model.Supplier) error {
	r.s.suppliers[sup.ID] = *sup
	return nil
}

func (r fakeSupplierRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.suppliers, id)
	return nil
}

func (r fakeSupplierRepo) FindByID(_ context.Context, id uint) (*model.Supplier, error) {
	sup, ok := r.s.suppliers[id]
	if !ok {
		return nil, apperror.NotFound("supplier", id)
	}
	return &sup, nil
}

func (r fakeSupplierRepo) List(ctx context.Context, _, _ string, page, limit int) ([]model.Supplier, int64, error) {
	all, _ := r.ListAll(ctx)
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r fakeSupplierRepo) ListAll(context.Context) ([]model.Supplier, error) {
	return slices.Collect(maps.Values(r.s.suppliers)), nil
}

type fakeCustomerRepo struct{ s *memStore }

func (r fakeCustomerRepo) Create(_ context.Context, c *model.Customer) error {
	c.ID = r.s.id()
	r.s.customers[c.ID] = *c
	return nil
}

func (r fakeCustomerRepo) Update(_ context.Context, c *model.Customer) error {
	r.s.customers[c.ID] = *c
	return nil
}

func (r fakeCustomerRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.customers, id)
	return nil
}

func (r fakeCustomerRepo) FindByID(_ context.Context, id uint) (*model.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperror.NotFound("customer", id)
	}
	return &c, nil
}

func (r fakeCustomerRepo) List(ctx context.Context, _, _, _ string, page, limit int) ([]model.Customer, int64, error) {
	all, _ := r.ListAll(ctx)
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r fakeCustomerRepo) ListAll(context.Context) ([]model.Customer, error) {
	return slices.Collect(maps.Values(r.s.customers)), nil
}

type fakeAuditRepo struct{ s *memStore }

func (r fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	entry.ID = r.s.id()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, _ repository.AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	return paginate(r.s.audits, page, limit), int64(len(r.s.audits)), nil
}

func paginate[T any](rows []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return rows
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return nil
	}
	end := min(start+limit, len(rows))
	return rows[start:end]
}

type recordingSink struct {
	batches [][]event.StockMovement
}

func (s *recordingSink) Publish(_ context.Context, movements []event.StockMovement) error {
	s.batches = append(s.batches, slices.Clone(movements))
	return nil
}

// fixture wires every service to one memStore.
type fixture struct {
	store *memStore
	tm    *fakeTxManager
	sink  *recordingSink

	materials fakeMaterialRepo
	products  fakeProductRepo
	boms      fakeBOMRepo

	mutator    StockMutator
	ledger     StockLedger
	calculator BOMCalculator

	po    PurchaseOrderService
	wo    WorkOrderService
	so    SalesOrderService
	stock StockService

	materialSvc MaterialService
	productSvc  ProductService
	bomSvc      BOMService
	supplierSvc SupplierService
	customerSvc CustomerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store:     store,
		tm:        &fakeTxManager{store: store},
		sink:      &recordingSink{},
		materials: fakeMaterialRepo{store},
		products:  fakeProductRepo{store},
		boms:      fakeBOMRepo{store},
	}
	events := event.NewDispatcher(zap.NewNop(), f.sink)
	audit := fakeAuditRepo{store}

	f.mutator = NewStockMutator(f.materials, f.products)
	f.ledger = NewStockLedger(fakeStockLogRepo{store})
	f.calculator = NewBOMCalculator(f.products, f.boms)

	f.po = NewPurchaseOrderService(f.tm, fakePORepo{store}, fakeSupplierRepo{store}, f.materials, audit, f.mutator, f.ledger, events)
	f.wo = NewWorkOrderService(f.tm, fakeWORepo{store}, f.products, audit, f.calculator, f.mutator, f.ledger, events)
	f.so = NewSalesOrderService(f.tm, fakeSORepo{store}, fakeCustomerRepo{store}, f.products, audit, f.mutator, f.ledger, events)
	f.stock = NewStockService(f.tm, f.materials, f.products, audit, f.mutator, f.ledger, events)

	logs := fakeStockLogRepo{store}
	f.materialSvc = NewMaterialService(f.tm, f.materials, fakeSupplierRepo{store}, f.boms, fakePORepo{store}, logs, audit, f.mutator, f.ledger, events)
	f.productSvc = NewProductService(f.tm, f.products, f.boms, fakeSORepo{store}, fakeWORepo{store}, logs, audit, f.mutator, f.ledger, events)
	f.bomSvc = NewBOMService(f.tm, f.boms, f.products, f.materials, audit, f.calculator)
	f.supplierSvc = NewSupplierService(f.tm, fakeSupplierRepo{store}, f.materials, fakePORepo{store}, audit)
	f.customerSvc = NewCustomerService(f.tm, fakeCustomerRepo{store}, fakeSORepo{store}, audit)
	return f
}

func (f *fixture) addMaterial(sku string, stock, minStock int) uint {
	id := f.store.id()
	f.store.materials[id] = model.Material{
		ID: id, SKU: sku, Name: "Material " + sku, Unit: "pcs",
		UnitPrice: decimal.NewFromInt(1000), Stock: stock, MinStock: minStock, Status: model.StatusActive,
	}
	return id
}

func (f *fixture) addProduct(sku string, stock int) uint {
	id := f.store.id()
	f.store.products[id] = model.Product{
		ID: id, SKU: sku, Name: "Product " + sku, Type: model.ProductTypeSendal,
		UnitPrice: decimal.NewFromInt(50000), Stock: stock, Status: model.StatusActive,
	}
	return id
}

func (f *fixture) addBOM(productID, materialID uint, qty string) {
	id := f.store.id()
	f.store.boms[id] = model.BOM{ID: id, ProductID: productID, MaterialID: materialID, Quantity: decimal.RequireFromString(qty)}
}

func (f *fixture) addSupplier() uint {
	id := f.store.id()
	f.store.suppliers[id] = model.Supplier{ID: id, Name: "PT Karet Jaya", Status: model.StatusActive}
	return id
}

func (f *fixture) addCustomer() uint {
	id := f.store.id()
	f.store.customers[id] = model.Customer{ID: id, Name: "Toko Sepatu", Type: model.CustomerTypeRetail, Status: model.StatusActive}
	return id
}

func (f *fixture) materialStock(id uint) int { return f.store.materials[id].Stock }
func (f *fixture) productStock(id uint) int  { return f.store.products[id].Stock }

func (f *fixture) inTx(t *testing.T, fn func(ctx context.Context) error) error {
	t.Helper()
	return f.tm.RunInTx(context.Background(), fn)
}

// addPO stores a purchase order with one line for the material and returns its id.
func (f *fixture) addPO(status string, materialID uint) uint {
	id := f.store.id()
	f.store.pos[id] = model.PurchaseOrder{
		ID: id, PONumber: "PO-FIX-" + strconv.Itoa(int(id)), SupplierID: f.addSupplier(), Status: status,
		Items: []model.POItem{{ID: f.store.id(), POID: id, MaterialID: materialID, Quantity: 1}},
	}
	return id
}

func (f *fixture) addSO(status string, productID uint) uint {
	id := f.store.id()
	f.store.sos[id] = model.SalesOrder{
		ID: id, SONumber: "SO-FIX-" + strconv.Itoa(int(id)), CustomerID: f.addCustomer(), Status: status,
		Items: []model.SOItem{{ID: f.store.id(), SOID: id, ProductID: productID, Quantity: 1}},
	}
	return id
}

func (f *fixture) addWO(status string, productID uint) uint {
	id := f.store.id()
	f.store.wos[id] = model.WorkOrder{
		ID: id, WONumber: "WO-FIX-" + strconv.Itoa(int(id)), ProductID: productID, QuantityPlanned: 1, Status: status,
	}
	return id
}
