package render

import (
	"bytes"
	"html/template"

	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	"github.com/smallbiznis/timesheet/internal/invoice/format"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Tax Invoice {{.Invoice.Number}}</title>
  <style>
    :root {
      --font: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: var(--font);
      color: #1a1f36;
      background: #f7f9fc;
      -webkit-font-smoothing: antialiased;
    }
    .invoice-card {
      background: #ffffff;
      max-width: 860px;
      margin: 0 auto;
      padding: 48px;
      box-shadow: 0 2px 5px rgba(0,0,0,0.04);
      border-radius: 4px;
    }
    h1 {
      margin: 0 0 24px;
      font-size: 26px;
      font-weight: 700;
      letter-spacing: 0.5px;
    }
    .details div {
      font-size: 14px;
      line-height: 1.7;
    }
    .label {
      font-weight: 600;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      margin: 32px 0 24px;
    }
    th, td {
      border: 1px solid #9ca3af;
      padding: 10px 12px;
      font-size: 14px;
    }
    th {
      background: #f3f4f6;
      text-align: left;
      font-weight: 600;
    }
    .td-right { text-align: right; }
    .total-row td {
      background: #f9fafb;
      font-weight: 700;
    }
    .footer {
      font-size: 13px;
      color: #4b5563;
    }
    @media print {
      @page { margin: 1in; size: A4; }
      body { background: #ffffff; padding: 0; }
      .invoice-card { box-shadow: none; padding: 0; max-width: none; }
    }
  </style>
</head>
<body>
  <div class="invoice-card">
    <h1>TAX INVOICE</h1>
    <div class="details">
      <div><span class="label">Invoice #:</span> {{.Invoice.Number}}</div>
      <div><span class="label">Contractor:</span> {{.Invoice.Contractor.Name}}</div>
      <div><span class="label">ABN:</span> {{.Invoice.Contractor.ABN}}</div>
      <div><span class="label">Bank Account:</span> BSB {{.Invoice.Contractor.BankBSB}} Account {{.Invoice.Contractor.BankAccount}}</div>
      <div><span class="label">Address:</span> {{.Invoice.Contractor.Address}}</div>
      <div><span class="label">Client:</span> {{.Invoice.ClientName}}</div>
    </div>

    <table>
      <thead>
        <tr>
          <th>Week Ending</th>
          <th class="td-right">Days</th>
          <th class="td-right">Rate/Day ($)</th>
          <th class="td-right">Subtotal ($)</th>
          <th class="td-right">GST {{percent .Invoice.GSTPercentage}}% ($)</th>
          <th class="td-right">Total ($)</th>
        </tr>
      </thead>
      <tbody>
        <tr>
          <td>{{weekEnding .Invoice}}</td>
          <td class="td-right">{{days .Invoice.DaysWorked}}</td>
          <td class="td-right">${{money .Invoice.DayRateCents}}</td>
          <td class="td-right">${{money .Invoice.SubtotalCents}}</td>
          <td class="td-right">${{money .Invoice.GSTCents}}</td>
          <td class="td-right">${{money .Invoice.TotalCents}}</td>
        </tr>
        <tr class="total-row">
          <td>Total</td>
          <td class="td-right">{{days .Invoice.DaysWorked}}</td>
          <td class="td-right">-</td>
          <td class="td-right">${{money .Invoice.SubtotalCents}}</td>
          <td class="td-right">${{money .Invoice.GSTCents}}</td>
          <td class="td-right">${{money .Invoice.TotalCents}}</td>
        </tr>
      </tbody>
    </table>

    <div class="footer">
      <p>Total Hours Worked: {{hours .Invoice.WeeklyMinutes}} hours</p>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"money":   format.Money,
		"days":    format.Days,
		"hours":   format.Hours,
		"percent": format.Percent,
		"weekEnding": func(v invoicedomain.View) string {
			return v.WeekEndingLabel()
		},
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}
