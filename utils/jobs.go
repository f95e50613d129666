package utils

import "context"

// JobPool bounds how many jobs run at the same time
type JobPool struct {
	jobs chan struct{}
}

// GetContext blocks until a slot is free or ctx is done
func (p *JobPool) GetContext(ctx context.Context) (err error) {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.jobs:
		return nil
	}
}

func (p *JobPool) Put() {
	p.jobs <- struct{}{}
}

func NewJobPool(size int) (j *JobPool) {
	if size <= 0 {
		size = 1
	}
	j = &JobPool{jobs: make(chan struct{}, size)}
	for range size {
		j.jobs <- struct{}{}
	}
	return j
}
