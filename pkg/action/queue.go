package action

import (
	"fmt"
	"sync"

	"github.com/vantagelabs/vantage/pkg/domain"
)

// Queue is the approval queue handed to the external boundary. It is
// the only surface through which the outside world may mutate
// core-owned entities, and the only permitted mutation is the
// DRAFTED -> APPROVED / REJECTED transition.
type Queue struct {
	mu     sync.Mutex
	order  []string
	drafts map[string]*domain.ActionDraft
}

// NewQueue builds a queue over a run's drafts, preserving their order.
func NewQueue(drafts []domain.ActionDraft) *Queue {
	q := &Queue{drafts: make(map[string]*domain.ActionDraft, len(drafts))}
	for i := range drafts {
		d := drafts[i]
		q.order = append(q.order, d.ID)
		q.drafts[d.ID] = &d
	}
	return q
}

// Drafts returns the queue contents in order. The slice is a copy;
// callers cannot mutate queue state through it.
func (q *Queue) Drafts() []domain.ActionDraft {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.ActionDraft, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.drafts[id])
	}
	return out
}

// Pending returns only the drafts still awaiting a decision.
func (q *Queue) Pending() []domain.ActionDraft {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.ActionDraft
	for _, id := range q.order {
		if q.drafts[id].Status == domain.StatusDrafted {
			out = append(out, *q.drafts[id])
		}
	}
	return out
}

// Approve marks a draft APPROVED.
func (q *Queue) Approve(id string) error {
	return q.transition(id, domain.StatusApproved)
}

// Reject marks a draft REJECTED.
func (q *Queue) Reject(id string) error {
	return q.transition(id, domain.StatusRejected)
}

func (q *Queue) transition(id string, to domain.DraftStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	draft, ok := q.drafts[id]
	if !ok {
		return fmt.Errorf("unknown draft %q", id)
	}
	if draft.Status != domain.StatusDrafted {
		return fmt.Errorf("draft %q already %s", id, draft.Status)
	}
	draft.Status = to
	return nil
}
