package bootstrap

import (
	invoiceapp "github.com/invoicegen/backend/internal/application/invoice"
	"github.com/shopspring/decimal"
)

func generateRequest() invoiceapp.GenerateRequest {
	return invoiceapp.GenerateRequest{
		Client: invoiceapp.ClientRequest{
			Name:    "Acme Corp",
			Phone:   "0812",
			Email:   "billing@acme.test",
			Address: "Jl. Sudirman 1",
		},
		InvoiceDate: "21.04.2025",
		DueDate:     "28.04.2025",
		Items: []invoiceapp.ItemRequest{
			{Description: "Website", UnitPrice: decimal.NewFromInt(1000000), Quantity: decimal.NewFromInt(1)},
		},
		TaxRate: decimal.NewFromInt(11),
	}
}
