package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/dukerupert/classdesk/internal/model"
	"github.com/dukerupert/classdesk/internal/notify"
)

// SubscriptionStore is the subset of the push store the dispatcher needs.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Dispatcher delivers class reminders to every subscribed device of a user.
type Dispatcher struct {
	service *Service
	subs    SubscriptionStore
	logger  *slog.Logger
}

func NewDispatcher(service *Service, subs SubscriptionStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{service: service, subs: subs, logger: logger}
}

// Dispatch implements notify.Dispatcher. Expired subscriptions are removed;
// other delivery failures are combined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, a notify.Alert) error {
	subs, err := d.subs.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	payload := Payload{
		Title: a.Title,
		Body:  a.Body,
		Icon:  a.Icon,
		URL:   "/",
		Tag:   a.Key,
	}

	var errs error
	for _, sub := range subs {
		err := d.service.Send(ctx, sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			d.logger.Info("removing expired push subscription", "user_id", userID, "subscription_id", sub.ID)
			if err := d.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				errs = multierr.Append(errs, err)
			}
		default:
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
		}
	}
	return errs
}
