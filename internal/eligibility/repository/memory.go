package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// MemoryRepository keeps evaluations in process memory. Records are copied on
// the way in and out.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*EvaluationRecord
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*EvaluationRecord),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, rec *EvaluationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = StatusCompleted
	}
	if rec.Documents == nil {
		rec.Documents = []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[rec.ID]; exists {
		return errors.Conflict("an evaluation with this id already exists")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	r.records[rec.ID] = copyRecord(rec)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*EvaluationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("evaluation")
	}
	return copyRecord(rec), nil
}

func (r *MemoryRepository) List(_ context.Context, params ListParams) ([]*EvaluationRecord, int64, error) {
	params.normalize()

	r.mu.RLock()
	var matched []*EvaluationRecord
	for _, rec := range r.records {
		if params.Country != "" && !strings.EqualFold(rec.Country, strings.TrimSpace(params.Country)) {
			continue
		}
		if params.VisaType != "" && !strings.EqualFold(rec.VisaType, strings.TrimSpace(params.VisaType)) {
			continue
		}
		if params.PartnerKey != "" && rec.PartnerKey != params.PartnerKey {
			continue
		}
		matched = append(matched, rec)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	out := []*EvaluationRecord{}
	for i := params.offset(); i < len(matched) && len(out) < params.PerPage; i++ {
		out = append(out, copyRecord(matched[i]))
	}
	return out, total, nil
}

func copyRecord(rec *EvaluationRecord) *EvaluationRecord {
	c := *rec
	c.Documents = append([]string{}, rec.Documents...)
	c.Profile = append([]byte(nil), rec.Profile...)
	c.Result = append([]byte(nil), rec.Result...)
	return &c
}
