package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/infra"
	"github.com/JaroldEnderez/Vanity/internal/model"
	"github.com/JaroldEnderez/Vanity/internal/repository"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StockAlertPayload is the job body sent to QueueStockAlert.
type StockAlertPayload struct {
	MaterialIDs []string `json:"material_ids"`
	ReferenceID *string  `json:"reference_id,omitempty"` // sale that caused the deduction
}

// AlertSender delivers one alert message. infra.Mailer satisfies it.
type AlertSender interface {
	SendAlert(to, subject, body string) error
}

// StockAlertWorker emails ALERT_EMAIL when a material is at or below the
// threshold. A redislock per material keeps it to one email per window.
type StockAlertWorker struct {
	materials repository.MaterialRepository
	locker    *redislock.Client
	sender    AlertSender
	cb        *infra.CircuitBreaker
	to        string
	threshold decimal.Decimal
	window    time.Duration
}

func NewStockAlertWorker(
	materials repository.MaterialRepository,
	locker *redislock.Client,
	sender AlertSender,
	cb *infra.CircuitBreaker,
	to string,
	threshold decimal.Decimal,
) *StockAlertWorker {
	return &StockAlertWorker{
		materials: materials,
		locker:    locker,
		sender:    sender,
		cb:        cb,
		to:        to,
		threshold: threshold,
		window:    time.Hour,
	}
}

func alertLockKey(id uuid.UUID) string { return "alert:material:" + id.String() }

func (w *StockAlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p StockAlertPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// Retrying cannot fix a bad payload.
		log.Error().Err(err).Msg("stock_alert: invalid payload")
		return nil
	}
	if w.to == "" {
		log.Debug().Msg("stock_alert: ALERT_EMAIL not set, skipping")
		return nil
	}

	ids := make([]uuid.UUID, 0, len(p.MaterialIDs))
	for _, s := range p.MaterialIDs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	mats, err := w.materials.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("stock_alert: load materials: %w", err)
	}

	for i := range mats {
		m := &mats[i]
		if m.Stock.GreaterThan(w.threshold) {
			continue
		}
		if err := w.alert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (w *StockAlertWorker) alert(ctx context.Context, m *model.Material) error {
	lock, err := w.locker.Obtain(ctx, alertLockKey(m.ID), w.window, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		log.Debug().Str("material_id", m.ID.String()).Msg("stock_alert: already alerted in this window")
		return nil
	}
	if err != nil {
		return fmt.Errorf("stock_alert: obtain lock: %w", err)
	}

	subject := fmt.Sprintf("Low stock: %s", m.Name)
	body := w.body(m)
	send := func() error { return w.sender.SendAlert(w.to, subject, body) }
	if w.cb != nil {
		err = w.cb.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		// Let the retry alert again.
		_ = lock.Release(ctx)
		return fmt.Errorf("stock_alert: send: %w", err)
	}
	log.Info().Str("material_id", m.ID.String()).Str("stock", m.Stock.String()).Msg("stock_alert: sent")
	return nil
}

func (w *StockAlertWorker) body(m *model.Material) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is running low.\n\n", m.Name)
	fmt.Fprintf(&b, "Current stock: %s %s\n", m.Stock.String(), m.Unit)
	fmt.Fprintf(&b, "Alert threshold: %s %s\n", w.threshold.String(), m.Unit)
	return b.String()
}
