// Package service implements the offer lifecycle over a storage.Store: card and
// offer editing, spend logging, archive and permanent delete, and status
// normalization on read. Multi-step writes run in one store transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"offer-tracker/internal/dates"
	"offer-tracker/internal/storage"
	"offer-tracker/internal/tracing"
	val "offer-tracker/internal/validator"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrValidation    = errors.New("invalid input")
	ErrOfferNotFound = errors.New("offer not found")
	ErrCardNotFound  = errors.New("card not found")
	ErrOfferArchived = errors.New("offer is archived")
)

// CardUnavailable is shown in place of the card name when the card was deleted.
const CardUnavailable = "card unavailable"

type Service struct {
	store  storage.Store
	loc    *time.Location
	now    func() time.Time
	tracer trace.Tracer
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone expiry days are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer(tracing.DefaultServiceName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		loc, err := dates.LoadZone(dates.DefaultZone)
		if err != nil {
			loc = time.UTC
		}
		s.loc = loc
	}
	return s
}

// Location is the zone expiry days are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "service."+name, trace.WithAttributes(attrs...))
}

// finish ends span, recording *errp when set. Meant to be deferred.
func finish(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}

func validateStruct(v any) error {
	if err := val.Validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		var msgs []string
		for _, e := range verrs {
			msgs = append(msgs, fieldErrorToString(e))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func fieldErrorToString(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", e.Field())
	case "calendarday":
		return fmt.Sprintf("%s must be a day in YYYY-MM-DD format", e.Field())
	case "issuer":
		return fmt.Sprintf("%s must be one of Chase, Amex, Citi, Other", e.Field())
	case "category":
		return fmt.Sprintf("%s is not a known category", e.Field())
	case "rewardtype":
		return fmt.Sprintf("%s must be percentage or threshold", e.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s is too long", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
