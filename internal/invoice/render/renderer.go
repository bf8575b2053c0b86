package render

import invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"

// RenderInput is everything printed on a tax invoice.
type RenderInput struct {
	Invoice invoicedomain.View
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}
