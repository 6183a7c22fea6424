// Package issuance runs the receipt issuance pipeline.
package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nucleon/receipts/internal/domain/receipt"
	"github.com/nucleon/receipts/internal/domain/shared"
	"github.com/nucleon/receipts/internal/infrastructure/logger"
	"github.com/nucleon/receipts/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Stage names the pipeline step an IssueError came from
type Stage string

const (
	StageValidation Stage = "validation"
	StageRender     Stage = "render"
	StageLedger     Stage = "ledger"
	StageStorage    Stage = "storage"
)

// ErrValidation matches every validation failure via errors.Is
var ErrValidation = shared.ErrValidation

// IssueError is returned when Issue cannot produce a receipt.
// Message is safe to show to the operator.
type IssueError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *IssueError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *IssueError) Unwrap() error {
	return e.Err
}

var stageMessages = map[Stage]string{
	StageValidation: "Invalid payment details",
	StageRender:     "Could not generate the receipt",
	StageLedger:     "Could not record the transaction",
	StageStorage:    "Could not save the receipt",
}

func newIssueError(stage Stage, err error) *IssueError {
	msg := stageMessages[stage]
	var de *shared.DomainError
	if stage == StageValidation && errors.As(err, &de) {
		msg = de.Message
	}
	return &IssueError{Stage: stage, Message: msg, Err: err}
}

// Recorder receives pipeline metrics. Implemented by metrics.Metrics.
type Recorder interface {
	IncrementIssued(feeType string)
	IncrementIssueFailure(stage string)
	RecordStorage(backend string, ok bool)
	ObserveIssueDuration(d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) IncrementIssued(string)             {}
func (nopRecorder) IncrementIssueFailure(string)       {}
func (nopRecorder) RecordStorage(string, bool)         {}
func (nopRecorder) ObserveIssueDuration(time.Duration) {}

// Service issues receipts
type Service struct {
	numbers  receipt.NumberGenerator
	renderer receipt.Renderer
	ledger   receipt.Ledger
	storage  receipt.StorageBackend
	profile  receipt.BrandingProfile
	logger   *zap.Logger
	recorder Recorder
	clock    func() time.Time
	location *time.Location
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock sets the clock used for default receipt dates
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the time zone receipt dates are taken in
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewService creates a Service. The branding profile is fixed for the
// lifetime of the service.
func NewService(
	numbers receipt.NumberGenerator,
	renderer receipt.Renderer,
	ledger receipt.Ledger,
	storage receipt.StorageBackend,
	profile receipt.BrandingProfile,
	opts ...Option,
) (*Service, error) {
	if numbers == nil || renderer == nil || ledger == nil || storage == nil {
		return nil, errors.New("issuance: number generator, renderer, ledger and storage are required")
	}
	profile = profile.WithDefaults()
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("issuance: branding profile: %w", err)
	}

	s := &Service{
		numbers:  numbers,
		renderer: renderer,
		ledger:   ledger,
		storage:  storage,
		profile:  profile,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		clock:    time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Profile returns the branding profile in use
func (s *Service) Profile() receipt.BrandingProfile {
	return s.profile
}

// Issue validates the payment, assigns a number, renders the receipt,
// appends it to the ledger and persists the document, in that order.
//
// The ledger row is kept when persisting fails. A failed upload is not an
// error: the result carries the document and the failure. Validation,
// render, ledger and local storage failures return an *IssueError. Once a
// receipt has been rendered it is never lost: ledger and local storage
// failures return the result alongside the error.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	start := s.clock()
	ctx, span := telemetry.StartSpan(ctx, "issuance.issue")
	defer span.End()

	log := logger.Enrich(ctx, s.logger)

	fail := func(stage Stage, err error, partial *IssueResult) (*IssueResult, error) {
		issueErr := newIssueError(stage, err)
		telemetry.RecordError(span, issueErr)
		telemetry.SetAttributes(span, telemetry.AttrStage, string(stage))
		s.recorder.IncrementIssueFailure(string(stage))
		if stage == StageValidation {
			log.Info("receipt rejected", zap.String("reason", issueErr.Message))
		} else {
			log.Error("receipt issue failed", zap.String("stage", string(stage)), zap.Error(err))
		}
		return partial, issueErr
	}

	feeType, month, date, err := s.parse(req)
	if err != nil {
		return fail(StageValidation, err, nil)
	}
	if err := receipt.ValidatePayment(req.StudentName, date, req.Amount, feeType, month); err != nil {
		return fail(StageValidation, err, nil)
	}

	rec, err := receipt.NewRecord(s.numbers.Generate(), req.StudentName, date, req.Amount, feeType, month)
	if err != nil {
		return fail(StageValidation, err, nil)
	}
	log = log.With(zap.String("receipt_number", rec.Number))
	telemetry.SetAttributes(span,
		telemetry.AttrReceiptNumber, rec.Number,
		telemetry.AttrFeeType, rec.FeeType.String(),
	)

	doc, err := s.render(ctx, rec)
	if err != nil {
		return fail(StageRender, err, nil)
	}

	result := &IssueResult{Record: rec, Document: doc, Backend: s.storage.Name()}
	if err := s.append(ctx, rec); err != nil {
		return fail(StageLedger, err, result)
	}
	result.Recorded = true

	stored := s.persist(ctx, doc, rec)
	result.Storage = stored
	s.recorder.RecordStorage(s.storage.Name(), stored.OK())
	if stored.Fatal() {
		return fail(StageStorage, stored.Err, result)
	}

	s.recorder.IncrementIssued(rec.FeeType.String())
	s.recorder.ObserveIssueDuration(s.clock().Sub(start))

	if !stored.OK() {
		telemetry.AddEvent(span, "upload failed", "error", stored.Err.Error())
		log.Warn("receipt issued without upload",
			zap.String("backend", s.storage.Name()),
			zap.Error(stored.Err),
		)
		return result, nil
	}

	telemetry.SetOK(span)
	log.Info("receipt issued",
		zap.String("fee_type", rec.FeeType.String()),
		zap.Stringer("amount", rec.Amount(s.profile.Currency)),
		zap.String("backend", s.storage.Name()),
		zap.String("location", stored.Location),
		zap.Int("bytes", doc.Len()),
	)
	return result, nil
}

func (s *Service) parse(req IssueRequest) (receipt.FeeType, receipt.Month, time.Time, error) {
	feeType, ok := receipt.ParseFeeType(req.FeeType)
	if !ok {
		return "", "", time.Time{}, shared.NewValidationError("fee_type", "Fee type must be Admission Fee or Tuition Fee")
	}

	var month receipt.Month
	if feeType.RequiresMonth() {
		month, ok = receipt.ParseMonth(req.Month)
		if !ok {
			return "", "", time.Time{}, shared.NewValidationError("month", "A valid month is required for tuition fees")
		}
	}

	date := req.Date
	if date.IsZero() {
		date = s.clock().In(s.location)
	}
	return feeType, month, date, nil
}

func (s *Service) render(ctx context.Context, rec *receipt.Record) (receipt.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "issuance.render")
	defer span.End()

	doc, err := s.renderer.Render(ctx, rec, s.profile)
	if err != nil {
		telemetry.RecordError(span, err)
		return receipt.Document{}, err
	}
	if doc.IsEmpty() {
		err := errors.New("renderer returned an empty document")
		telemetry.RecordError(span, err)
		return receipt.Document{}, err
	}
	telemetry.SetAttributes(span, telemetry.AttrDocumentBytes, doc.Len())
	return doc, nil
}

func (s *Service) append(ctx context.Context, rec *receipt.Record) error {
	ctx, span := telemetry.StartSpan(ctx, "issuance.ledger")
	defer span.End()

	if err := s.ledger.Append(ctx, rec); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (s *Service) persist(ctx context.Context, doc receipt.Document, rec *receipt.Record) receipt.StorageResult {
	ctx, span := telemetry.StartSpan(ctx, "issuance.persist",
		telemetry.WithAttribute(telemetry.AttrStorageBackend, s.storage.Name()),
	)
	defer span.End()

	result := s.storage.Persist(ctx, doc, rec)
	telemetry.SetAttributes(span, telemetry.AttrStorageOK, result.OK())
	if result.Err != nil {
		telemetry.RecordError(span, result.Err)
	}
	return result
}
