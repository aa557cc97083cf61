package workerpool

import "context"

type Response struct {
	Value any
	Err   error
}

type Job struct {
	Ctx  context.Context
	Run  func(context.Context) (any, error)
	Resp chan Response
}

// NewJob builds a job whose response channel never blocks the worker.
func NewJob(ctx context.Context, run func(context.Context) (any, error)) Job {
	return Job{Ctx: ctx, Run: run, Resp: make(chan Response, 1)}
}
