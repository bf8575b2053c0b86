package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/timesheet/internal/clock"
	"github.com/smallbiznis/timesheet/internal/contractor/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	abnDigits = 11
	bsbDigits = 6
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("contractor.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID) (*domain.Settings, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.FindByUser(ctx, s.db, userID)
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.Settings, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	abn := strings.TrimSpace(req.ABN)
	if abn != "" && !hasDigits(abn, abnDigits) {
		return nil, domain.ErrInvalidABN
	}
	bsb := strings.TrimSpace(req.BankBSB)
	if bsb != "" && !hasDigits(bsb, bsbDigits) {
		return nil, domain.ErrInvalidBankBSB
	}
	account := strings.TrimSpace(req.BankAccount)
	if account != "" && !hasDigits(account, -1) {
		return nil, domain.ErrInvalidBankAccount
	}
	postcode := strings.TrimSpace(req.Postcode)
	if postcode != "" && !hasDigits(postcode, -1) {
		return nil, domain.ErrInvalidPostcode
	}

	now := s.clock.Now().UTC()
	settings := &domain.Settings{
		ID:             s.genID.Generate(),
		UserID:         req.UserID,
		ContractorName: strings.TrimSpace(req.ContractorName),
		ABN:            abn,
		BankBSB:        bsb,
		BankAccount:    account,
		AddressLine1:   strings.TrimSpace(req.AddressLine1),
		AddressLine2:   strings.TrimSpace(req.AddressLine2),
		City:           strings.TrimSpace(req.City),
		State:          strings.TrimSpace(req.State),
		Postcode:       postcode,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var saved *domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, settings); err != nil {
			return err
		}
		current, err := s.repo.FindByUser(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		saved = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contractor settings saved", zap.String("user_id", req.UserID.String()))
	return saved, nil
}

// hasDigits reports whether raw holds only digits once spaces and dashes
// are removed. want < 0 accepts any non-zero count.
func hasDigits(raw string, want int) bool {
	count := 0
	for _, r := range raw {
		switch {
		case r == ' ' || r == '-':
			continue
		case unicode.IsDigit(r):
			count++
		default:
			return false
		}
	}
	if want < 0 {
		return count > 0
	}
	return count == want
}

