package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	contractordomain "github.com/smallbiznis/timesheet/internal/contractor/domain"
)

type upsertSettingsRequest struct {
	ContractorName string `json:"contractorName"`
	ABN            string `json:"abn"`
	BankBSB        string `json:"bankBsb"`
	BankAccount    string `json:"bankAccount"`
	AddressLine1   string `json:"addressLine1"`
	AddressLine2   string `json:"addressLine2"`
	City           string `json:"city"`
	State          string `json:"state"`
	Postcode       string `json:"postcode"`
}

// GetSettings returns {"data": null} until the user saves settings.
func (s *Server) GetSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	settings, err := s.settingsSvc.Get(c.Request.Context(), user.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

func (s *Server) UpsertSettings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req upsertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.settingsSvc.Upsert(c.Request.Context(), contractordomain.UpsertRequest{
		UserID:         user.ID,
		ContractorName: req.ContractorName,
		ABN:            req.ABN,
		BankBSB:        req.BankBSB,
		BankAccount:    req.BankAccount,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		State:          req.State,
		Postcode:       req.Postcode,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}
