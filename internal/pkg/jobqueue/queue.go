package jobqueue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voltagency/voltsite/internal/pkg/cache"
)

const (
	// Redis key layout
	JobKeyPrefix = "job:"
	JobQueueKey  = "job_queue"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Processor handles one job type.
type Processor interface {
	Process(ctx context.Context, job *Job) error
}

// Queue manages background jobs using Redis.
type Queue struct {
	client     *redis.Client
	processors map[JobType]Processor
	workers    int
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

// NewQueue creates a job queue backed by the shared Redis client.
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	return &Queue{
		client:     cache.GetClient(),
		processors: make(map[JobType]Processor),
		workers:    workers,
		stopCh:     make(chan struct{}),
	}
}

// Register binds a processor to a job type. Must be called before Start.
func (q *Queue) Register(t JobType, p Processor) {
	q.processors[t] = p
}

// Start launches the queue workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop stops the workers and waits for in-flight jobs.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// Enqueue stores a new job and pushes it onto the queue.
func (q *Queue) Enqueue(jobType JobType, payload map[string]string) (string, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	ctx := context.Background()
	if err := q.saveJob(ctx, job); err != nil {
		return "", err
	}
	if err := q.client.LPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		res, err := q.client.BRPop(ctx, 2*time.Second, JobQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[JobQueue] Worker %d: pop error: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}
		q.processJob(ctx, res[1])
	}
}

func (q *Queue) processJob(ctx context.Context, jobID string) {
	job, err := q.loadJob(ctx, jobID)
	if err != nil {
		log.Errorf("[JobQueue] Job %s: load error: %v", jobID, err)
		return
	}

	processor, ok := q.processors[job.Type]
	if !ok {
		log.Errorf("[JobQueue] Job %s: no processor for type %s", job.ID, job.Type)
		q.finishJob(ctx, job, JobStatusFailed, "no processor registered")
		return
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now()
	_ = q.saveJob(ctx, job)

	if err := processor.Process(ctx, job); err != nil {
		job.RetryCount++
		if job.RetryCount < job.MaxRetries {
			log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), requeueing: %v", job.ID, job.RetryCount, job.MaxRetries, err)
			job.Status = JobStatusRetrying
			job.ErrorMsg = err.Error()
			job.UpdatedAt = time.Now()
			_ = q.saveJob(ctx, job)
			_ = q.client.LPush(ctx, JobQueueKey, job.ID).Err()
			return
		}
		log.Errorf("[JobQueue] Job %s failed permanently: %v", job.ID, err)
		q.finishJob(ctx, job, JobStatusFailed, err.Error())
		return
	}

	q.finishJob(ctx, job, JobStatusCompleted, "")
}

func (q *Queue) finishJob(ctx context.Context, job *Job, status JobStatus, errMsg string) {
	now := time.Now()
	job.Status = status
	job.ErrorMsg = errMsg
	job.UpdatedAt = now
	job.CompletedAt = &now
	_ = q.saveJob(ctx, job)
}

func (q *Queue) saveJob(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err()
}

func (q *Queue) loadJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, err
	}
	return &job, nil
}
