package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
)

type createTemplateRequest struct {
	TemplateName         string   `json:"templateName"`
	ClientName           string   `json:"clientName"`
	DayRate              float64  `json:"dayRate"`
	GSTPercentage        *float64 `json:"gstPercentage"`
	IsActive             *bool    `json:"isActive"`
	IsDefault            bool     `json:"isDefault"`
	CustomContractorName string   `json:"customContractorName"`
	CustomABN            string   `json:"customAbn"`
	CustomBankBSB        string   `json:"customBankBsb"`
	CustomBankAccount    string   `json:"customBankAccount"`
	CustomAddress        string   `json:"customAddress"`
}

// gstPercentage is raw so an explicit null can clear the stored value.
type updateTemplateRequest struct {
	TemplateName         *string         `json:"templateName"`
	ClientName           *string         `json:"clientName"`
	DayRate              *float64        `json:"dayRate"`
	GSTPercentage        json.RawMessage `json:"gstPercentage"`
	IsActive             *bool           `json:"isActive"`
	IsDefault            *bool           `json:"isDefault"`
	CustomContractorName *string         `json:"customContractorName"`
	CustomABN            *string         `json:"customAbn"`
	CustomBankBSB        *string         `json:"customBankBsb"`
	CustomBankAccount    *string         `json:"customBankAccount"`
	CustomAddress        *string         `json:"customAddress"`
}

func (s *Server) CreateInvoiceTemplate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.templateSvc.Create(c.Request.Context(), templatedomain.CreateRequest{
		UserID:               user.ID,
		TemplateName:         req.TemplateName,
		ClientName:           req.ClientName,
		DayRate:              req.DayRate,
		GSTPercentage:        req.GSTPercentage,
		IsActive:             req.IsActive,
		IsDefault:            req.IsDefault,
		CustomContractorName: req.CustomContractorName,
		CustomABN:            req.CustomABN,
		CustomBankBSB:        req.CustomBankBSB,
		CustomBankAccount:    req.CustomBankAccount,
		CustomAddress:        req.CustomAddress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoiceTemplates(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.templateSvc.List(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceTemplateByID(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.templateSvc.Get(c.Request.Context(), user.ID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoiceTemplate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := templatedomain.UpdateRequest{
		UserID:               user.ID,
		ID:                   strings.TrimSpace(c.Param("id")),
		TemplateName:         req.TemplateName,
		ClientName:           req.ClientName,
		DayRate:              req.DayRate,
		IsActive:             req.IsActive,
		IsDefault:            req.IsDefault,
		CustomContractorName: req.CustomContractorName,
		CustomABN:            req.CustomABN,
		CustomBankBSB:        req.CustomBankBSB,
		CustomBankAccount:    req.CustomBankAccount,
		CustomAddress:        req.CustomAddress,
	}
	if raw := bytes.TrimSpace(req.GSTPercentage); len(raw) > 0 {
		if bytes.Equal(raw, []byte("null")) {
			update.ClearGST = true
		} else {
			var gst float64
			if err := json.Unmarshal(raw, &gst); err != nil {
				AbortWithError(c, templatedomain.ErrInvalidGSTPercentage)
				return
			}
			update.GSTPercentage = &gst
		}
	}

	resp, err := s.templateSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoiceTemplate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.templateSvc.Delete(c.Request.Context(), user.ID, strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) SetDefaultInvoiceTemplate(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.templateSvc.SetDefault(c.Request.Context(), user.ID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
