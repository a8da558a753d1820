package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang-stock-monitor/internal/entity"
	"golang-stock-monitor/internal/monitor/repository"
	"golang-stock-monitor/pkg/logger"
	"golang-stock-monitor/pkg/utils"
)

// AlertDeduper creates alerts idempotently and honours the cool-down window.
type AlertDeduper interface {
	Create(ctx context.Context, positionID uint, trigger Trigger) (*entity.Alert, bool, error)
	MarkSent(ctx context.Context, alertID uint) (*entity.Alert, error)
	Purge(ctx context.Context, days int) (int64, error)
}

type alertDeduper struct {
	alertRepo repository.AlertRepository
	cooldown  time.Duration
	clock     utils.Clock
	logger    *logger.Logger
	locks     *keyedMutex
}

// NewAlertDeduper creates a new AlertDeduper.
func NewAlertDeduper(alertRepo repository.AlertRepository, cooldown time.Duration, clock utils.Clock, log *logger.Logger) AlertDeduper {
	return &alertDeduper{
		alertRepo: alertRepo,
		cooldown:  cooldown,
		clock:     clock,
		logger:    log,
		locks:     newKeyedMutex(),
	}
}

func (d *alertDeduper) Create(ctx context.Context, positionID uint, trigger Trigger) (*entity.Alert, bool, error) {
	unlock := d.locks.Lock(fmt.Sprintf("%d:%s", positionID, trigger.AlertType))
	defer unlock()

	alert := &entity.Alert{
		PositionID: positionID,
		AlertType:  trigger.AlertType,
		Reason:     trigger.Reason,
		Price:      trigger.Price,
		MA5:        trigger.MA5,
		MA20:       trigger.MA20,
	}
	result, created, err := d.alertRepo.CreateIfAbsent(ctx, alert, d.cooldown, d.clock.Now())
	if err != nil {
		return nil, false, err
	}

	if created {
		d.logger.InfoContext(ctx, "Alert created",
			logger.IntField("position_id", int(positionID)),
			logger.StringField("alert_type", string(trigger.AlertType)),
			logger.IntField("alert_id", int(result.ID)),
			logger.StringField("reason", trigger.Reason))
	} else {
		d.logger.DebugContext(ctx, "Alert suppressed",
			logger.IntField("position_id", int(positionID)),
			logger.StringField("alert_type", string(trigger.AlertType)),
			logger.IntField("existing_alert_id", int(result.ID)),
			logger.Field("existing_sent", result.Sent))
	}
	return result, created, nil
}

func (d *alertDeduper) MarkSent(ctx context.Context, alertID uint) (*entity.Alert, error) {
	return d.alertRepo.MarkSent(ctx, alertID, d.clock.Now())
}

// Purge deletes sent alerts older than days. Unsent alerts are kept.
func (d *alertDeduper) Purge(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		days = 0
	}
	before := d.clock.Now().AddDate(0, 0, -days)
	deleted, err := d.alertRepo.PurgeSent(ctx, before)
	if err != nil {
		return 0, err
	}
	d.logger.InfoContext(ctx, "Purged sent alerts", logger.IntField("days", days), logger.Field("deleted", deleted))
	return deleted, nil
}

// keyedMutex serialises callers per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
