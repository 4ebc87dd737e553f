package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/dineops-backend/internal/domain"
	"github.com/yungbote/dineops-backend/internal/platform/dbctx"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

// Context is the execution handle for one claimed outbox event. Tx is the
// transaction that will also mark the event succeeded, so handler writes and
// the status change commit together.
type Context struct {
	Ctx   context.Context
	Tx    *gorm.DB
	Event *types.OutboxEvent
	Log   *logger.Logger
}

func NewContext(ctx context.Context, tx *gorm.DB, ev *types.OutboxEvent, baseLog *logger.Logger) *Context {
	log := baseLog
	if log == nil {
		log = logger.Nop()
	}
	if ev != nil {
		log = log.With("event_id", ev.ID, "event_type", ev.EventType)
	}
	return &Context{Ctx: ctx, Tx: tx, Event: ev, Log: log}
}

// DBC scopes repo calls to the handler transaction.
func (c *Context) DBC() dbctx.Context {
	return dbctx.Context{Ctx: c.Ctx, Tx: c.Tx}
}

// Decode unmarshals the event payload into dest.
func (c *Context) Decode(dest any) error {
	if c.Event == nil || len(c.Event.Payload) == 0 {
		return fmt.Errorf("outbox event has no payload")
	}
	if err := json.Unmarshal(c.Event.Payload, dest); err != nil {
		return fmt.Errorf("decode %s payload: %w", c.Event.EventType, err)
	}
	return nil
}
