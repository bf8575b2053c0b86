package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	"github.com/smallbiznis/timesheet/internal/invoice/format"
	"github.com/smallbiznis/timesheet/internal/timecalc"
)

type invoiceResponse struct {
	Number          string                          `json:"number"`
	WeekStart       string                          `json:"weekStart"`
	WeekEnding      string                          `json:"weekEnding"`
	WeekEndingLabel string                          `json:"weekEndingLabel"`
	WeeklyMinutes   int                             `json:"weeklyMinutes"`
	TotalHours      string                          `json:"totalHours"`
	DaysWorked      float64                         `json:"daysWorked"`
	DayRate         float64                         `json:"dayRate"`
	Subtotal        float64                         `json:"subtotal"`
	GSTPercentage   float64                         `json:"gstPercentage"`
	GST             float64                         `json:"gst"`
	Total           float64                         `json:"total"`
	Formatted       invoiceFormatted                `json:"formatted"`
	TemplateID      string                          `json:"templateId"`
	TemplateName    string                          `json:"templateName"`
	ClientName      string                          `json:"clientName"`
	Contractor      invoicedomain.ContractorDetails `json:"contractor"`
}

type invoiceFormatted struct {
	DaysWorked    string `json:"daysWorked"`
	DayRate       string `json:"dayRate"`
	Subtotal      string `json:"subtotal"`
	GSTPercentage string `json:"gstPercentage"`
	GST           string `json:"gst"`
	Total         string `json:"total"`
}

// PreviewInvoice prices the requested week as JSON.
func (s *Server) PreviewInvoice(c *gin.Context) {
	c.Set("invoice_format", "json")
	req, ok := s.invoiceRequest(c)
	if !ok {
		return
	}

	view, err := s.invoiceSvc.Preview(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toInvoiceResponse(view)})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	c.Set("invoice_format", "pdf")
	req, ok := s.invoiceRequest(c)
	if !ok {
		return
	}

	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
		"Cache-Control":       "no-store",
	}
	if doc.ArchiveURL != "" {
		headers["X-Archive-URL"] = doc.ArchiveURL
	}
	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, doc.Body, headers)
}

// PrintInvoice serves the printable HTML invoice.
func (s *Server) PrintInvoice(c *gin.Context) {
	c.Set("invoice_format", "html")
	req, ok := s.invoiceRequest(c)
	if !ok {
		return
	}

	html, err := s.invoiceSvc.RenderHTML(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) invoiceRequest(c *gin.Context) (invoicedomain.Request, bool) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return invoicedomain.Request{}, false
	}

	rawWeek := c.Query("weekStart")
	weekStart, err := parseOptionalWeekStart(rawWeek)
	if err != nil {
		AbortWithError(c, err)
		return invoicedomain.Request{}, false
	}
	if rawWeek != "" {
		c.Set("week_start", rawWeek)
	}

	rawTemplate := c.Query("templateId")
	templateID, err := parseOptionalSnowflakeID(rawTemplate)
	if err != nil {
		AbortWithError(c, err)
		return invoicedomain.Request{}, false
	}
	if rawTemplate != "" {
		c.Set("template_id", rawTemplate)
	}

	return invoicedomain.Request{
		UserID:     user.ID,
		WeekStart:  weekStart,
		TemplateID: templateID,
	}, true
}

func toInvoiceResponse(view invoicedomain.View) invoiceResponse {
	return invoiceResponse{
		Number:          view.Number,
		WeekStart:       view.WeekStart.Format(timecalc.KeyLayout),
		WeekEnding:      view.WeekEnding.Format(timecalc.KeyLayout),
		WeekEndingLabel: view.WeekEndingLabel(),
		WeeklyMinutes:   view.WeeklyMinutes,
		TotalHours:      format.Hours(view.WeeklyMinutes),
		DaysWorked:      view.DaysWorked,
		DayRate:         dollars(view.DayRateCents),
		Subtotal:        dollars(view.SubtotalCents),
		GSTPercentage:   view.GSTPercentage,
		GST:             dollars(view.GSTCents),
		Total:           dollars(view.TotalCents),
		Formatted: invoiceFormatted{
			DaysWorked:    format.Days(view.DaysWorked),
			DayRate:       format.Money(view.DayRateCents),
			Subtotal:      format.Money(view.SubtotalCents),
			GSTPercentage: format.Percent(view.GSTPercentage),
			GST:           format.Money(view.GSTCents),
			Total:         format.Money(view.TotalCents),
		},
		TemplateID:   view.TemplateID.String(),
		TemplateName: view.TemplateName,
		ClientName:   view.ClientName,
		Contractor:   view.Contractor,
	}
}

func dollars(cents int64) float64 {
	return float64(cents) / 100
}
