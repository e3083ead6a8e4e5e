package service

import (
	"context"
	"fmt"

	"factory/internal/model"

	"github.com/xuri/excelize/v2"
)

// ExportService renders catalog tables as xlsx workbooks.
type ExportService interface {
	Materials(ctx context.Context) (*excelize.File, error)
	Products(ctx context.Context) (*excelize.File, error)
	Suppliers(ctx context.Context) (*excelize.File, error)
	Customers(ctx context.Context) (*excelize.File, error)
}

type exportService struct {
	materials MaterialService
	products  ProductService
	suppliers SupplierService
	customers CustomerService
}

func NewExportService(materials MaterialService, products ProductService, suppliers SupplierService, customers CustomerService) ExportService {
	return &exportService{materials: materials, products: products, suppliers: suppliers, customers: customers}
}

// writeSheet fills a single-sheet workbook with a bold header row and one row per record.
func writeSheet(sheet string, headers []string, rows [][]any) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheet, "A", lastCol, 18)
	return f, nil
}

func (s *exportService) Materials(ctx context.Context) (*excelize.File, error) {
	items, err := s.materials.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(items))
	for _, m := range items {
		supplier := ""
		if m.Supplier != nil {
			supplier = m.Supplier.Name
		}
		rows = append(rows, []any{m.SKU, m.Name, m.Category, m.Unit, m.UnitPrice.InexactFloat64(), m.Stock, m.MinStock, supplier, m.Status})
	}
	return writeSheet("Materials",
		[]string{"SKU", "Name", "Category", "Unit", "Unit Price", "Stock", "Min Stock", "Supplier", "Status"}, rows)
}

func (s *exportService) Products(ctx context.Context) (*excelize.File, error) {
	items, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(items))
	for _, p := range items {
		rows = append(rows, []any{p.SKU, p.Name, p.Category, p.Type, p.Size, p.Color, p.UnitPrice.InexactFloat64(), p.Stock, p.MinStock, p.Status})
	}
	return writeSheet("Products",
		[]string{"SKU", "Name", "Category", "Type", "Size", "Color", "Unit Price", "Stock", "Min Stock", "Status"}, rows)
}

func (s *exportService) Suppliers(ctx context.Context) (*excelize.File, error) {
	items, err := s.suppliers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(items))
	for _, p := range items {
		rows = append(rows, []any{p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.Status})
	}
	return writeSheet("Suppliers",
		[]string{"Name", "Contact Person", "Phone", "Email", "Address", "Status"}, rows)
}

func (s *exportService) Customers(ctx context.Context) (*excelize.File, error) {
	items, err := s.customers.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(items))
	for _, c := range items {
		rows = append(rows, []any{c.Name, c.ContactPerson, c.Phone, c.Email, c.Address, customerTypeLabel(c.Type), c.Status})
	}
	return writeSheet("Customers",
		[]string{"Name", "Contact Person", "Phone", "Email", "Address", "Type", "Status"}, rows)
}

func customerTypeLabel(t string) string {
	switch t {
	case model.CustomerTypeWholesale:
		return "Wholesale"
	case model.CustomerTypeRetail:
		return "Retail"
	}
	return t
}
