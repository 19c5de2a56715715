package service

import (
	"context"
	"fmt"

	"lane-inventory/internal/cache"
	"lane-inventory/internal/ws"
	"lane-inventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated user on whose behalf an operation runs.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// SystemActor is used by the seeder and background jobs.
var SystemActor = Actor{Name: "system"}

// AuditID is the value stored in CreatedBy/UpdatedBy columns.
func (a Actor) AuditID() string {
	if a.ID == uuid.Nil {
		return "system"
	}
	return a.ID.String()
}

func (a Actor) wsUser() *ws.UserInfo {
	return &ws.UserInfo{ID: a.AuditID(), Name: a.Name, Email: a.Email}
}

// EventPublisher pushes live updates to connected clients.
type EventPublisher interface {
	Publish(ev ws.Event) bool
}

type noopPublisher struct{}

func (noopPublisher) Publish(ws.Event) bool { return false }

// Deps are the collaborators shared by the stock changing services.
type Deps struct {
	DB     *gorm.DB
	Events EventPublisher
	Cache  cache.ReportCache
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = noopPublisher{}
	}
	if d.Cache == nil {
		d.Cache = cache.NoopReportCache{}
	}
	return d
}

// afterCommit refreshes derived state once stock or sales changed. Failures
// here never undo the committed operation.
func (d Deps) afterCommit(ctx context.Context, ev ws.Event) {
	if err := d.Cache.Invalidate(ctx); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("report cache invalidation failed")
	}
	d.Events.Publish(ev)
}

func describe(actor Actor, format string, args ...interface{}) string {
	name := actor.Name
	if name == "" {
		name = "someone"
	}
	return name + " " + fmt.Sprintf(format, args...)
}
