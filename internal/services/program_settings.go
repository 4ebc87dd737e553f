package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dineops-backend/internal/data/repos"
	types "github.com/yungbote/dineops-backend/internal/domain"
	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/domain/loyalty"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// ProgramSnapshot is a program row together with its parsed settings.
type ProgramSnapshot struct {
	Program  types.LoyaltyProgram `json:"program"`
	Settings loyalty.Settings     `json:"settings"`
}

type ProgramSettingsService interface {
	Get(ctx context.Context, programID uuid.UUID) (*ProgramSnapshot, error)
	// Active is Get, but an inactive program reads as not found.
	Active(ctx context.Context, programID uuid.UUID) (*ProgramSnapshot, error)
	UpdateSettings(ctx context.Context, programID uuid.UUID, raw []byte) (*ProgramSnapshot, error)
}

type programSettingsService struct {
	db       *gorm.DB
	log      *logger.Logger
	programs repos.LoyaltyProgramRepo
	cache    cache.Cache
	defaults loyalty.Defaults
}

func NewProgramSettingsService(db *gorm.DB, baseLog *logger.Logger, programs repos.LoyaltyProgramRepo, c cache.Cache, defaults loyalty.Defaults) ProgramSettingsService {
	if c == nil {
		c = cache.NewMemory()
	}
	return &programSettingsService{
		db:       db,
		log:      baseLog.With("service", "ProgramSettingsService"),
		programs: programs,
		cache:    c,
		defaults: defaults,
	}
}

func programCacheKey(id uuid.UUID) string {
	return "loyalty:program:" + id.String()
}

func (s *programSettingsService) Get(ctx context.Context, programID uuid.UUID) (*ProgramSnapshot, error) {
	const op = "Loyalty.Programs.Get"
	if programID == uuid.Nil {
		return nil, domainagg.Validation(op, "program_id is required")
	}

	key := programCacheKey(programID)
	var cached ProgramSnapshot
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("program cache read failed", "program_id", programID, "error", err)
	}
	if hit {
		return &cached, nil
	}

	p, err := s.programs.GetByID(dbctx.Context{Ctx: ctx}, programID)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	if p == nil {
		return nil, domainagg.NotFound(op, "Loyalty program not found")
	}
	settings, err := loyalty.ParseSettings(p.Settings)
	if err != nil {
		// A stored document that no longer parses must not block purchases.
		s.log.Error("stored program settings are invalid", "program_id", programID, "error", err)
		settings = loyalty.Settings{}
	}
	snap := &ProgramSnapshot{Program: *p, Settings: settings}
	if err := s.cache.Set(ctx, key, snap, s.defaults.ProgramSettingsTTL()); err != nil {
		s.log.Warn("program cache write failed", "program_id", programID, "error", err)
	}
	return snap, nil
}

func (s *programSettingsService) Active(ctx context.Context, programID uuid.UUID) (*ProgramSnapshot, error) {
	snap, err := s.Get(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !snap.Program.IsActive {
		return nil, domainagg.NotFound("Loyalty.Programs.Active", "Loyalty program not found or inactive")
	}
	return snap, nil
}

func (s *programSettingsService) UpdateSettings(ctx context.Context, programID uuid.UUID, raw []byte) (_ *ProgramSnapshot, err error) {
	const op = "Loyalty.Programs.UpdateSettings"
	ctx, span := startSpan(ctx, "loyalty.programs.update_settings", attribute.String("dineops.program_id", programID.String()))
	defer func() { endSpan(span, err) }()

	if programID == uuid.Nil {
		return nil, domainagg.Validation(op, "program_id is required")
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil, domainagg.Validation(op, "settings document is required")
	}
	settings, err := loyalty.ParseSettings(raw)
	if err != nil {
		return nil, domainagg.Validation(op, err.Error())
	}
	if err := settings.Validate(); err != nil {
		return nil, domainagg.Validation(op, err.Error())
	}
	normalized, err := jsonBytes(settings)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}

	found, err := s.programs.UpdateSettings(dbctx.Context{Ctx: ctx}, programID, datatypes.JSON(normalized))
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "internal error", err)
	}
	if !found {
		return nil, domainagg.NotFound(op, "Loyalty program not found")
	}
	if _, err := s.cache.Invalidate(ctx, fmt.Sprintf("loyalty:program:%s*", programID)); err != nil {
		s.log.Warn("program cache invalidate failed", "program_id", programID, "error", err)
	}
	s.log.Info("program settings updated", "program_id", programID, "rules", len(settings.Rules))
	return s.Get(ctx, programID)
}
