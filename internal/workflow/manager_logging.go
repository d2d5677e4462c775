package workflow

import (
	"context"

	"photolog/internal/job"
	"photolog/internal/services"
)

func withJobContext(ctx context.Context, rec *job.Record, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if rec != nil {
		ctx = services.WithJobKey(ctx, rec.Key)
		ctx = services.WithJobType(ctx, string(rec.Kind()))
		if rec.Step != "" {
			ctx = services.WithStep(ctx, rec.Step)
		}
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
