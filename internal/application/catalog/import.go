package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/csvimport"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxImportRows   = 5000
	maxImportErrors = 100
)

var importRequired = []string{"sku", "name", "kind", "price", "cost"}

// ImportOptions tunes how the file is read
type ImportOptions struct {
	Delimiter rune
}

// ImportResult reports a product import. Nothing is saved when Errors is not empty.
type ImportResult struct {
	TotalRows   int                  `json:"total_rows"`
	Imported    int                  `json:"imported"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors,omitempty"`
	Truncated   bool                 `json:"truncated,omitempty"`
}

// Rejected reports whether the file was refused because of row errors
func (r *ImportResult) Rejected() bool {
	return r.TotalErrors > 0
}

type importRow struct {
	product  *catalog.Product
	movement *inventory.StockMovement
}

// Import creates products from a CSV with the columns sku, name, kind, price,
// cost and optionally category, min_stock and initial_stock. Every row is
// validated first; the products are then saved in a single transaction.
func (s *ProductService) Import(ctx context.Context, tenantID uuid.UUID, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	parserOpts := []csvimport.Option{csvimport.WithMaxRows(maxImportRows)}
	if opts.Delimiter != 0 {
		parserOpts = append(parserOpts, csvimport.WithDelimiter(opts.Delimiter))
	}
	parser, err := csvimport.NewParser(r, parserOpts...)
	if err != nil {
		return nil, invalidCSV(err)
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, invalidCSV(err)
	}
	if missing := parser.MissingHeaders(importRequired...); len(missing) > 0 {
		return nil, shared.NewDomainError("INVALID_CSV", "Missing columns: "+strings.Join(missing, ", "))
	}
	rows, err := parser.ReadAll()
	if err != nil {
		return nil, invalidCSV(err)
	}
	if len(rows) == 0 {
		return nil, shared.NewDomainError("INVALID_CSV", "CSV file contains no data rows")
	}

	errs := csvimport.NewErrors(maxImportErrors)
	seen := make(map[string]struct{}, len(rows))
	valid := make([]importRow, 0, len(rows))
	for _, row := range rows {
		req, ok := parseImportRow(row, errs)
		if !ok {
			continue
		}
		product, movement, err := buildProduct(tenantID, req)
		if err != nil {
			errs.Invalid(row.Line, "", "", domainMessage(err))
			continue
		}
		if _, dup := seen[product.SKU]; dup {
			errs.Duplicate(row.Line, "sku", product.SKU, false)
			continue
		}
		seen[product.SKU] = struct{}{}
		exists, err := s.productRepo.ExistsBySKU(ctx, product.SKU)
		if err != nil {
			return nil, err
		}
		if exists {
			errs.Duplicate(row.Line, "sku", product.SKU, true)
			continue
		}
		valid = append(valid, importRow{product: product, movement: movement})
	}

	result := &ImportResult{TotalRows: len(rows)}
	if errs.HasErrors() {
		result.Errors = errs.Items()
		result.TotalErrors = errs.Total()
		result.Truncated = errs.Truncated()
		s.logger.Info("product import rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("rows", len(rows)),
			zap.Int("errors", errs.Total()),
		)
		return result, nil
	}

	err = s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		var movements []*inventory.StockMovement
		for _, v := range valid {
			if err := s.productRepo.Save(txCtx, v.product); err != nil {
				return err
			}
			if v.movement != nil {
				movements = append(movements, v.movement)
			}
		}
		if len(movements) == 0 {
			return nil
		}
		return s.movementRepo.Create(txCtx, nil, movements...)
	})
	if err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("SKU_TAKEN", "A product in the file was created concurrently")
		}
		return nil, err
	}

	result.Imported = len(valid)
	s.logger.Info("products imported",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("imported", result.Imported),
	)
	return result, nil
}

func parseImportRow(row *csvimport.Row, errs *csvimport.Errors) (CreateProductRequest, bool) {
	ok := true
	req := CreateProductRequest{
		SKU:      row.Get("sku"),
		Name:     row.Get("name"),
		Kind:     strings.ToLower(row.Get("kind")),
		Category: row.Get("category"),
	}
	for _, col := range importRequired {
		if row.Get(col) == "" {
			errs.Required(row.Line, col)
			ok = false
		}
	}

	amount := func(col string) (decimal.Decimal, bool) {
		raw := row.Get(col)
		if raw == "" {
			return decimal.Zero, false
		}
		d, err := parseDecimal(raw)
		if err != nil || d.IsNegative() {
			errs.Invalid(row.Line, col, raw, "must be a non-negative number")
			ok = false
			return decimal.Zero, false
		}
		return d, true
	}

	req.Price, _ = amount("price")
	req.Cost, _ = amount("cost")
	if d, set := amount("min_stock"); set {
		req.MinStock = &d
	}
	if d, set := amount("initial_stock"); set {
		req.InitialStock = &d
	}
	return req, ok
}

// parseDecimal accepts both 189.90 and the Brazilian 189,90
func parseDecimal(raw string) (decimal.Decimal, error) {
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	}
	return decimal.NewFromString(raw)
}

func domainMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

func invalidCSV(err error) error {
	return shared.NewDomainError("INVALID_CSV", err.Error())
}
