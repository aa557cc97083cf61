package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed answers jobs still queued when the pool shuts down.
var ErrClosed = errors.New("workerpool: closed")

type Pool struct {
	jobs    chan Job
	kill    chan struct{}
	rootCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	submit  sync.RWMutex
	workers int32
	active  int32
	closed  atomic.Bool
}

func New(workerCnt, queueSize int) *Pool {
	if workerCnt <= 0 {
		workerCnt = 1
	}
	if queueSize <= 0 {
		queueSize = workerCnt * 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan Job, queueSize),
		kill:    make(chan struct{}, workerCnt*2),
		rootCtx: ctx,
		cancel:  cancel,
	}
	atomic.StoreInt32(&p.workers, int32(workerCnt))
	p.spawn(workerCnt)
	return p
}

func (p *Pool) spawn(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.kill:
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(job)
		case <-p.rootCtx.Done():
			return
		}
	}
}

func (p *Pool) run(job Job) {
	if errCtx := job.Ctx.Err(); errCtx != nil {
		select {
		case job.Resp <- Response{Err: errCtx}:
		default:
		}
		return
	}

	atomic.AddInt32(&p.active, 1)
	v, err := job.Run(job.Ctx)
	atomic.AddInt32(&p.active, -1)

	select {
	case job.Resp <- Response{Value: v, Err: err}:
	case <-job.Ctx.Done():
	}
}

// Submit runs the job inline when the queue is full or the pool is closed.
func (p *Pool) Submit(j Job) {
	p.submit.RLock()
	if p.closed.Load() {
		p.submit.RUnlock()
		p.run(j)
		return
	}
	select {
	case p.jobs <- j:
		p.submit.RUnlock()
	default:
		p.submit.RUnlock()
		p.run(j)
	}
}

func (p *Pool) Resize(n int) {
	if n <= 0 || p.closed.Load() {
		return
	}
	cur := int(atomic.LoadInt32(&p.workers))
	if n == cur {
		return
	}

	if n > cur {
		p.spawn(n - cur)
	} else {
		// the first cur-n workers to read kill exit
		for i := 0; i < cur-n; i++ {
			p.kill <- struct{}{}
		}
	}
	atomic.StoreInt32(&p.workers, int32(n))
}

func (p *Pool) WorkerCount() int {
	return int(atomic.LoadInt32(&p.workers))
}

func (p *Pool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&p.active))
}

func (p *Pool) QueueSize() int {
	return len(p.jobs)
}

func (p *Pool) QueueCapacity() int {
	return cap(p.jobs)
}

// Close stops the workers and fails every job left in the queue with ErrClosed.
func (p *Pool) Close() {
	p.submit.Lock()
	swapped := p.closed.CompareAndSwap(false, true)
	p.submit.Unlock()
	if !swapped {
		return
	}
	p.cancel()
	p.wg.Wait()

	for {
		select {
		case job := <-p.jobs:
			select {
			case job.Resp <- Response{Err: ErrClosed}:
			default:
			}
		default:
			return
		}
	}
}
