package service

import (
	"context"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/clock"
	invoicedomain "github.com/smallbiznis/timesheet/internal/invoice/domain"
	templatedomain "github.com/smallbiznis/timesheet/internal/invoicetemplate/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  templatedomain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  templatedomain.Repository
	clock clock.Clock
}

func NewService(p Params) templatedomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoicetemplate.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) Create(ctx context.Context, req templatedomain.CreateRequest) (*templatedomain.Response, error) {
	if req.UserID == 0 {
		return nil, templatedomain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.TemplateName)
	if name == "" {
		return nil, templatedomain.ErrInvalidTemplateName
	}
	client := strings.TrimSpace(req.ClientName)
	if client == "" {
		return nil, templatedomain.ErrInvalidClientName
	}
	if !validDayRate(req.DayRate) {
		return nil, templatedomain.ErrInvalidDayRate
	}
	if req.GSTPercentage != nil && !validGST(*req.GSTPercentage) {
		return nil, templatedomain.ErrInvalidGSTPercentage
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := s.clock.Now().UTC()
	tmpl := &templatedomain.Template{
		ID:                   s.genID.Generate(),
		UserID:               req.UserID,
		TemplateName:         name,
		ClientName:           client,
		DayRate:              req.DayRate,
		GSTPercentage:        req.GSTPercentage,
		IsActive:             active,
		CustomContractorName: strings.TrimSpace(req.CustomContractorName),
		CustomABN:            strings.TrimSpace(req.CustomABN),
		CustomBankBSB:        strings.TrimSpace(req.CustomBankBSB),
		CustomBankAccount:    strings.TrimSpace(req.CustomBankAccount),
		CustomAddress:        strings.TrimSpace(req.CustomAddress),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	var defaultID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, tmpl); err != nil {
			return err
		}
		if req.IsDefault {
			if err := s.repo.SetDefault(ctx, tx, req.UserID, tmpl.ID, now); err != nil {
				return err
			}
		}
		id, err := s.repo.DefaultID(ctx, tx, req.UserID)
		defaultID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice template created",
		zap.String("user_id", req.UserID.String()),
		zap.String("template_id", tmpl.ID.String()),
		zap.Bool("is_default", defaultID == tmpl.ID),
	)
	return toResponse(tmpl, defaultID), nil
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]templatedomain.Response, error) {
	items, defaultID, err := s.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]templatedomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i], defaultID))
	}
	return resp, nil
}

func (s *Service) Active(ctx context.Context, userID snowflake.ID) ([]templatedomain.Template, snowflake.ID, error) {
	if userID == 0 {
		return nil, 0, templatedomain.ErrInvalidUser
	}

	items, err := s.repo.ListActive(ctx, s.db, userID)
	if err != nil {
		return nil, 0, err
	}
	defaultID, err := s.repo.DefaultID(ctx, s.db, userID)
	if err != nil {
		return nil, 0, err
	}

	invoicedomain.SortTemplates(items, defaultID)
	return items, defaultID, nil
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID, id string) (*templatedomain.Response, error) {
	item, err := s.find(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	defaultID, err := s.repo.DefaultID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return toResponse(item, defaultID), nil
}

func (s *Service) Update(ctx context.Context, req templatedomain.UpdateRequest) (*templatedomain.Response, error) {
	item, err := s.find(ctx, s.db, req.UserID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.TemplateName != nil {
		name := strings.TrimSpace(*req.TemplateName)
		if name == "" {
			return nil, templatedomain.ErrInvalidTemplateName
		}
		item.TemplateName = name
	}
	if req.ClientName != nil {
		client := strings.TrimSpace(*req.ClientName)
		if client == "" {
			return nil, templatedomain.ErrInvalidClientName
		}
		item.ClientName = client
	}
	if req.DayRate != nil {
		if !validDayRate(*req.DayRate) {
			return nil, templatedomain.ErrInvalidDayRate
		}
		item.DayRate = *req.DayRate
	}
	switch {
	case req.ClearGST:
		item.GSTPercentage = nil
	case req.GSTPercentage != nil:
		if !validGST(*req.GSTPercentage) {
			return nil, templatedomain.ErrInvalidGSTPercentage
		}
		gst := *req.GSTPercentage
		item.GSTPercentage = &gst
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	applyString(&item.CustomContractorName, req.CustomContractorName)
	applyString(&item.CustomABN, req.CustomABN)
	applyString(&item.CustomBankBSB, req.CustomBankBSB)
	applyString(&item.CustomBankAccount, req.CustomBankAccount)
	applyString(&item.CustomAddress, req.CustomAddress)

	now := s.clock.Now().UTC()
	item.UpdatedAt = now

	var defaultID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		if req.IsDefault != nil {
			if *req.IsDefault {
				if err := s.repo.SetDefault(ctx, tx, item.UserID, item.ID, now); err != nil {
					return err
				}
			} else if err := s.repo.ClearDefault(ctx, tx, item.UserID, item.ID, now); err != nil {
				return err
			}
		}
		id, err := s.repo.DefaultID(ctx, tx, item.UserID)
		defaultID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice template updated",
		zap.String("user_id", item.UserID.String()),
		zap.String("template_id", item.ID.String()),
	)
	return toResponse(item, defaultID), nil
}

func (s *Service) Delete(ctx context.Context, userID snowflake.ID, id string) error {
	if userID == 0 {
		return templatedomain.ErrInvalidUser
	}
	templateID, err := templatedomain.ParseID(id)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(ctx, tx, userID, templateID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return templatedomain.ErrNotFound
		}
		return s.repo.ClearDefault(ctx, tx, userID, templateID, now)
	})
	if err != nil {
		return err
	}

	s.log.Info("invoice template deleted",
		zap.String("user_id", userID.String()),
		zap.String("template_id", templateID.String()),
	)
	return nil
}

func (s *Service) SetDefault(ctx context.Context, userID snowflake.ID, id string) (*templatedomain.Response, error) {
	item, err := s.find(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetDefault(ctx, s.db, userID, item.ID, s.clock.Now().UTC()); err != nil {
		return nil, err
	}

	s.log.Info("default invoice template set",
		zap.String("user_id", userID.String()),
		zap.String("template_id", item.ID.String()),
	)
	return toResponse(item, item.ID), nil
}

func (s *Service) find(ctx context.Context, db *gorm.DB, userID snowflake.ID, id string) (*templatedomain.Template, error) {
	if userID == 0 {
		return nil, templatedomain.ErrInvalidUser
	}
	templateID, err := templatedomain.ParseID(id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, db, userID, templateID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, templatedomain.ErrNotFound
	}
	return item, nil
}

func toResponse(tmpl *templatedomain.Template, defaultID snowflake.ID) *templatedomain.Response {
	if tmpl == nil {
		return nil
	}
	return &templatedomain.Response{
		ID:                   tmpl.ID.String(),
		TemplateName:         tmpl.TemplateName,
		ClientName:           tmpl.ClientName,
		DayRate:              tmpl.DayRate,
		GSTPercentage:        tmpl.GSTPercentage,
		IsDefault:            defaultID != 0 && tmpl.ID == defaultID,
		IsActive:             tmpl.IsActive,
		CustomContractorName: tmpl.CustomContractorName,
		CustomABN:            tmpl.CustomABN,
		CustomBankBSB:        tmpl.CustomBankBSB,
		CustomBankAccount:    tmpl.CustomBankAccount,
		CustomAddress:        tmpl.CustomAddress,
		CreatedAt:            tmpl.CreatedAt,
		UpdatedAt:            tmpl.UpdatedAt,
	}
}

func applyString(dst *string, value *string) {
	if value == nil {
		return
	}
	*dst = strings.TrimSpace(*value)
}

func validDayRate(rate float64) bool {
	return rate >= 0 && !math.IsNaN(rate) && !math.IsInf(rate, 0)
}

// validGST accepts fractions, 0.1 meaning 10%.
func validGST(pct float64) bool {
	return pct >= 0 && pct <= 1 && !math.IsNaN(pct)
}
