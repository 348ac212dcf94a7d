package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/ifeis/server/internal/email"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// Inserter is the part of a River client the queue needs.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Queue enqueues background work on behalf of the domain services. The
// services are built before the River client exists, since the workers
// need them, so the client is attached afterwards.
type Queue struct {
	mu     sync.RWMutex
	client Inserter
	policy *RetryPolicy
}

func NewQueue(policy *RetryPolicy) *Queue {
	return &Queue{policy: policy}
}

// Attach sets the client jobs are inserted through.
func (q *Queue) Attach(client Inserter) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.client = client
}

// Enqueue implements email.Queue.
func (q *Queue) Enqueue(ctx context.Context, msg email.Message) error {
	return q.insert(ctx, EmailArgs{Message: msg}, QueueEmail)
}

// EnqueueCachePlacements implements events.PlacementQueue.
func (q *Queue) EnqueueCachePlacements(ctx context.Context, feisID, eventID string) error {
	return q.insert(ctx, CachePlacementsArgs{FeisID: feisID, EventID: eventID}, QueueResults)
}

func (q *Queue) insert(ctx context.Context, args river.JobArgs, queue string) error {
	q.mu.RLock()
	client := q.client
	q.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("job queue not attached")
	}
	if _, err := client.Insert(ctx, args, q.policy.InsertOpts(args.Kind(), queue)); err != nil {
		return fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
	return nil
}
