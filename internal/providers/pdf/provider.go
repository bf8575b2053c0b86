package pdf

import "context"

// Provider renders documents to PDF bytes.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}
