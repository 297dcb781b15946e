package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/store"
	"github.com/noah-isme/sma-adp-api/internal/validator"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

// ConstraintService exposes the Constraint Store's CRUD surface and a
// read-only availability check backed by a freshly loaded Validator.
type ConstraintService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewConstraintService constructs a ConstraintService.
func NewConstraintService(s *store.Store, logger *zap.Logger) *ConstraintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConstraintService{store: s, logger: logger}
}

// Create adds a single constraint record, dispatching to the Store method
// matching the requested kind.
func (s *ConstraintService) Create(ctx context.Context, req dto.CreateConstraintRequest) (string, error) {
	priority, fellBack := store.ParsePriority(req.Priority)
	if fellBack && req.Priority != "" {
		s.logger.Warn("unrecognised constraint priority, defaulting to hard", zap.String("priority", req.Priority))
	}

	var id string
	var err error
	switch store.Kind(req.Kind) {
	case store.KindTeacherUnavailable:
		id, err = s.store.AddTeacherUnavailable(ctx, req.SubjectID, req.DayOfWeek, req.StartOffset, req.EndOffset, req.Reason, priority, req.Week)
	case store.KindRoomUnavailable:
		id, err = s.store.AddRoomUnavailable(ctx, req.SubjectID, req.DayOfWeek, req.StartOffset, req.EndOffset, req.Reason, priority, req.Week)
	case store.KindGroupUnavailable:
		id, err = s.store.AddGroupUnavailable(ctx, req.SubjectID, req.DayOfWeek, req.StartOffset, req.EndOffset, req.Reason, priority, req.Week)
	case store.KindSlotFixed:
		id, err = s.store.AddSlotFixed(ctx, req.SubjectID, req.DayOfWeek, req.StartOffset, req.EndOffset, req.Reason, req.Week)
	case store.KindSlotExam:
		id, err = s.store.AddSlotExam(ctx, req.SubjectID, req.DayOfWeek, req.StartOffset, req.EndOffset, req.Reason, req.Week)
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown constraint kind")
	}
	if err != nil {
		if appErr := appErrors.FromError(err); appErr != nil && appErr.Code == appErrors.ErrUnknownSubject.Code {
			return "", err
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create constraint")
	}
	return id, nil
}

// BulkCreate inserts many constraint records in one transaction.
func (s *ConstraintService) BulkCreate(ctx context.Context, req dto.BulkCreateConstraintRequest) ([]string, error) {
	records := make([]store.Record, 0, len(req.Records))
	for _, r := range req.Records {
		priority, _ := store.ParsePriority(r.Priority)
		isExam := store.Kind(r.Kind) == store.KindSlotExam
		records = append(records, store.Record{
			Kind:        store.Kind(r.Kind),
			SubjectID:   r.SubjectID,
			DayOfWeek:   r.DayOfWeek,
			StartOffset: r.StartOffset,
			EndOffset:   r.EndOffset,
			Reason:      r.Reason,
			Priority:    priority,
			WeekID:      r.Week,
			IsExam:      isExam,
		})
	}
	ids, err := s.store.BulkAdd(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create constraints")
	}
	return ids, nil
}

// List returns constraint records of a given kind.
func (s *ConstraintService) List(ctx context.Context, kind string, subjectID string, week *int, global bool) ([]dto.ConstraintRecord, error) {
	records, err := s.store.List(ctx, store.Kind(kind), store.Filter{SubjectID: subjectID, Week: week, Global: global})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list constraints")
	}
	out := make([]dto.ConstraintRecord, 0, len(records))
	for _, r := range records {
		out = append(out, toConstraintRecord(r))
	}
	return out, nil
}

// Update applies a partial patch to a constraint record.
func (s *ConstraintService) Update(ctx context.Context, id string, req dto.UpdateConstraintRequest) error {
	patch := store.Patch{StartOffset: req.StartOffset, EndOffset: req.EndOffset, Reason: req.Reason}
	if req.Priority != nil {
		priority, _ := store.ParsePriority(*req.Priority)
		patch.Priority = &priority
	}
	if err := s.store.Update(ctx, id, patch); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update constraint")
	}
	return nil
}

// UpdatePriority reassigns a constraint record's priority.
func (s *ConstraintService) UpdatePriority(ctx context.Context, id string, req dto.UpdatePriorityRequest) error {
	priority, _ := store.ParsePriority(req.Priority)
	if err := s.store.UpdatePriority(ctx, id, priority); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update constraint priority")
	}
	return nil
}

// Delete removes a constraint record.
func (s *ConstraintService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete constraint")
	}
	return nil
}

// Summary returns record counts by kind, optionally scoped to a week.
func (s *ConstraintService) Summary(ctx context.Context, week *int) (map[string]int, error) {
	counts, err := s.store.Summary(ctx, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize constraints")
	}
	out := make(map[string]int, len(counts))
	for kind, count := range counts {
		out[string(kind)] = count
	}
	return out, nil
}

// Check answers a single availability query by loading a fresh Validator
// snapshot for the requested week. It is intentionally uncached: callers
// needing many checks for the same week should use the solver pipeline
// instead, which loads the Validator once per run.
func (s *ConstraintService) Check(ctx context.Context, req dto.CheckAvailabilityRequest) (*dto.CheckAvailabilityResponse, error) {
	v, err := validator.Load(ctx, s.store, req.Week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load validator snapshot")
	}
	outcome := v.CheckAvailability(validator.SubjectKind(req.Kind), req.SubjectID, req.DayOfWeek, req.Start, req.End)
	resp := &dto.CheckAvailabilityResponse{Available: outcome.Available, Reason: outcome.Reason}
	if !outcome.Available {
		resp.Priority = string(outcome.Priority)
	}
	return resp, nil
}

func toConstraintRecord(r store.Record) dto.ConstraintRecord {
	return dto.ConstraintRecord{
		ID:          r.ID,
		Kind:        string(r.Kind),
		SubjectID:   r.SubjectID,
		DayOfWeek:   r.DayOfWeek,
		StartOffset: r.StartOffset,
		EndOffset:   r.EndOffset,
		Reason:      r.Reason,
		Priority:    string(r.Priority),
		Week:        r.WeekID,
		IsExam:      r.IsExam,
		CreatedAt:   r.CreatedAt,
	}
}
