package postgres

import (
	"context"
	"errors"

	"arenahub/internal/core/domain"
	"arenahub/pkg/tracing"

	"go.opentelemetry.io/otel/trace"
)

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// endSpan records unexpected errors on the span. Not-found results are
// ordinary outcomes and stay unrecorded.
func endSpan(ctx context.Context, span trace.Span, errp *error) {
	if err := *errp; err != nil &&
		!errors.Is(err, domain.ErrUserNotFound) &&
		!errors.Is(err, domain.ErrAdminNotFound) &&
		!errors.Is(err, domain.ErrInitTokenNotFound) {
		tracing.RecordError(ctx, err)
	}
	span.End()
}
