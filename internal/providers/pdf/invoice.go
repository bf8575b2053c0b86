package pdf

import (
	"context"
	"errors"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingNumber = errors.New("invoice number is required")

// InvoiceData is a priced weekly invoice with every value already formatted
// for print.
type InvoiceData struct {
	Number         string
	ContractorName string
	ABN            string
	BankBSB        string
	BankAccount    string
	Address        string
	ClientName     string

	WeekEnding string
	Days       string
	DayRate    string
	Subtotal   string
	GSTLabel   string
	GST        string
	Total      string
	TotalHours string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

var (
	headerText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText   = props.Text{Size: 9}
	rightText  = props.Text{Size: 9, Align: align.Right}
	boldRight  = props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}
)

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	if invoice.Number == "" {
		return nil, ErrMissingNumber
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, "TAX INVOICE", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(36,
		col.New(12).Add(
			text.New("Invoice #: "+invoice.Number, props.Text{Top: 0}),
			text.New("Contractor: "+invoice.ContractorName, props.Text{Top: 5}),
			text.New("ABN: "+invoice.ABN, props.Text{Top: 10}),
			text.New("Bank Account: BSB "+invoice.BankBSB+" Account "+invoice.BankAccount, props.Text{Top: 15}),
			text.New("Address: "+invoice.Address, props.Text{Top: 20}),
			text.New("Client: "+invoice.ClientName, props.Text{Top: 25}),
		),
	)

	m.AddRow(10,
		text.NewCol(2, "Week Ending", headerText),
		text.NewCol(1, "Days", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Rate/Day ($)", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Subtotal ($)", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, invoice.GSTLabel, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Total ($)", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(1, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(2, invoice.WeekEnding, cellText),
		text.NewCol(1, invoice.Days, rightText),
		text.NewCol(2, "$"+invoice.DayRate, rightText),
		text.NewCol(2, "$"+invoice.Subtotal, rightText),
		text.NewCol(3, "$"+invoice.GST, rightText),
		text.NewCol(2, "$"+invoice.Total, rightText),
	)
	m.AddRow(1, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(2, "Total", headerText),
		text.NewCol(1, invoice.Days, boldRight),
		text.NewCol(2, "-", boldRight),
		text.NewCol(2, "$"+invoice.Subtotal, boldRight),
		text.NewCol(3, "$"+invoice.GST, boldRight),
		text.NewCol(2, "$"+invoice.Total, boldRight),
	)

	m.AddRow(15,
		text.NewCol(12, "Total Hours Worked: "+invoice.TotalHours+" hours", props.Text{
			Size: 9,
			Top:  6,
		}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return doc.GetBytes(), nil
}
