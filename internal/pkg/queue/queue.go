package queue

import (
	"errors"
	"sync"

	"threatlens/internal/pkg/models"
)

type Queue struct {
    mu       sync.Mutex
    capacity int
    closed   bool
    q        []models.AnalysisRequest
}

// Creates an empty queue with a specified capacity
func CreateQueue(capacity int) (*Queue, error) {
    if capacity <= 0 {
        return nil, errors.New("capacity should be greater than 0")
    }
    return &Queue{
        capacity: capacity,
        q:        make([]models.AnalysisRequest, 0, capacity),
    }, nil
}

// Inserts an item into the queue
func (q *Queue) Insert(item models.AnalysisRequest) error {
    q.mu.Lock()
    defer q.mu.Unlock()
    if q.closed {
        return errors.New("queue is closed")
    }
    if len(q.q) < q.capacity {
        q.q = append(q.q, item)
        return nil
    }
    return errors.New("queue is full")
}

// Removes the oldest element from the queue
func (q *Queue) Remove() (models.AnalysisRequest, error) {
    q.mu.Lock()
    defer q.mu.Unlock()
    if len(q.q) > 0 {
        item := q.q[0]
        q.q = q.q[1:]
        return item, nil
    }
    return models.AnalysisRequest{}, errors.New("queue is empty")
}

// Stops the queue from accepting new items. Items already queued can
// still be drained.
func (q *Queue) Close() {
    q.mu.Lock()
    defer q.mu.Unlock()
    q.closed = true
}

// Returns the number of elements in the queue
func (q *Queue) Length() int {
    q.mu.Lock()
    defer q.mu.Unlock()
    return len(q.q)
}

// Returns true if the queue is empty
func (q *Queue) IsEmpty() bool {
    return q.Length() == 0
}
