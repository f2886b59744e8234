package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/petshop/erp/internal/domain/catalog"
	"github.com/petshop/erp/internal/domain/inventory"
	"github.com/petshop/erp/internal/domain/shared"
	"github.com/petshop/erp/internal/infrastructure/csvimport"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProductService_Import(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	svc, products, movements := newTestService()

	data := "sku,name,kind,price,cost,category,min_stock,initial_stock\n" +
		"rac-001,Ração Premium 15kg,product,189.90,120.00,racao,5,20\n" +
		"BANHO-P,Banho porte pequeno,Service,60,0,servicos,,\n"

	products.On("ExistsBySKU", ctx, "RAC-001").Return(false, nil)
	products.On("ExistsBySKU", ctx, "BANHO-P").Return(false, nil)
	products.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil).Twice()
	movements.On("Create", ctx, nil, mock.MatchedBy(func(ms []*inventory.StockMovement) bool {
		return len(ms) == 1 && ms[0].Quantity.Equal(decimal.NewFromInt(20))
	})).Return(nil)

	result, err := svc.Import(ctx, tenantID, strings.NewReader(data), ImportOptions{})

	require.NoError(t, err)
	assert.False(t, result.Rejected())
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.Imported)
	products.AssertExpectations(t)
	movements.AssertExpectations(t)
}

func TestProductService_ImportRejectsWholeFile(t *testing.T) {
	ctx := context.Background()
	svc, products, movements := newTestService()

	data := "sku,name,kind,price,cost\n" +
		"RAC-1,Ração,product,,10\n" +
		"BRINQ-1,Bola,toy,10,5\n" +
		"AREIA-1,Areia,product,30,20\n" +
		"coleira-1,Coleira,product,40,25\n" +
		"COLEIRA-1,Coleira 2,product,40,25\n"

	products.On("ExistsBySKU", ctx, "AREIA-1").Return(true, nil)
	products.On("ExistsBySKU", ctx, "COLEIRA-1").Return(false, nil).Once()

	result, err := svc.Import(ctx, uuid.New(), strings.NewReader(data), ImportOptions{})

	require.NoError(t, err)
	assert.True(t, result.Rejected())
	assert.Zero(t, result.Imported)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 4, result.TotalErrors)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{
		csvimport.CodeRequired,
		csvimport.CodeInvalidValue,
		csvimport.CodeDuplicateInDB,
		csvimport.CodeDuplicateInFile,
	}, codes)
	assert.Equal(t, 6, result.Errors[3].Line)
	products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_ImportSemicolonWithDecimalComma(t *testing.T) {
	ctx := context.Background()
	svc, products, movements := newTestService()

	data := "SKU;Name;Kind;Price;Cost\nTOSA-G;Tosa porte grande;service;1.250,50;0\n"

	products.On("ExistsBySKU", ctx, "TOSA-G").Return(false, nil)
	products.On("Save", ctx, mock.MatchedBy(func(p *catalog.Product) bool {
		return p.SKU == "TOSA-G" && p.Price.Equal(money("1250.50"))
	})).Return(nil)

	result, err := svc.Import(ctx, uuid.New(), strings.NewReader(data), ImportOptions{Delimiter: ';'})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	products.AssertExpectations(t)
	movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductService_ImportFileErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing columns", "sku,name\nRAC-1,Ração\n"},
		{"header only", "sku,name,kind,price,cost\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, products, _ := newTestService()

			_, err := svc.Import(context.Background(), uuid.New(), strings.NewReader(tt.data), ImportOptions{})

			var de *shared.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, "INVALID_CSV", de.Code)
			products.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestParseDecimal(t *testing.T) {
	tests := map[string]string{
		"189.90":   "189.9",
		"189,90":   "189.9",
		"1.250,50": "1250.5",
		"7":        "7",
	}
	for in, want := range tests {
		d, err := parseDecimal(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}
}
