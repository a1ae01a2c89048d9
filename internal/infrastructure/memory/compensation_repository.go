package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
)

// CompensationRepository はプロセス内メモリで動作する payment.CompensationRepository 実装
type CompensationRepository struct {
	mu          sync.RWMutex
	byID        map[string]*payment.Compensation
	byIntentRef map[string]string
}

var _ payment.CompensationRepository = (*CompensationRepository)(nil)

// NewCompensationRepository は新しい CompensationRepository を作成する
func NewCompensationRepository() *CompensationRepository {
	return &CompensationRepository{
		byID:        make(map[string]*payment.Compensation),
		byIntentRef: make(map[string]string),
	}
}

func (r *CompensationRepository) Create(_ context.Context, c *payment.Compensation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIntentRef[c.IntentRef]; ok {
		return payment.ErrCompensationExists
	}
	stored := *c
	r.byID[c.ID] = &stored
	r.byIntentRef[c.IntentRef] = c.ID
	return nil
}

func (r *CompensationRepository) GetByID(_ context.Context, id string) (*payment.Compensation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return nil, payment.ErrCompensationNotFound
	}
	out := *c
	return &out, nil
}

func (r *CompensationRepository) GetByIntentRef(ctx context.Context, ref string) (*payment.Compensation, error) {
	r.mu.RLock()
	id, ok := r.byIntentRef[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, payment.ErrCompensationNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *CompensationRepository) List(_ context.Context, status payment.CompensationStatus, limit, offset int) ([]*payment.Compensation, error) {
	r.mu.RLock()
	result := make([]*payment.Compensation, 0, len(r.byID))
	for _, c := range r.byID {
		if status == "" || c.Status == status {
			out := *c
			result = append(result, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, limit, offset), nil
}

func (r *CompensationRepository) Update(_ context.Context, c *payment.Compensation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; !ok {
		return payment.ErrCompensationNotFound
	}
	stored := *c
	r.byID[c.ID] = &stored
	return nil
}
