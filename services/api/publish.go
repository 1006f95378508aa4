package api

import (
	"context"
	"time"
)

const publishTimeout = 2 * time.Second

func (a *API) publish(ctx context.Context, subject string, payload any) {
	if a.publisher == nil || subject == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := a.publisher.Publish(ctx, subject, payload); err != nil {
		a.logger.Warn().Err(err).Str("subject", subject).Msg("publish event")
	}
}
