package mudio

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ProcessFiles runs the pipeline over every path and returns one Result
// per processed file in input order. Small batches run sequentially;
// from MinParallel files up the work fans out over Workers goroutines.
// Cancelling ctx stops the submission of further files while in-flight
// files finish cleanly, so cancellation never half-writes anything.
func (p *Processor) ProcessFiles(ctx context.Context, paths []string) []Result {
	workers := p.workers()
	if len(paths) < p.minParallel() || workers == 1 {
		return p.processSequential(ctx, paths)
	}
	return p.processParallel(ctx, paths, workers)
}

func (p *Processor) processSequential(ctx context.Context, paths []string) []Result {
	var results []Result
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		res := p.ProcessFile(ctx, path)
		results = append(results, res)
		p.report(res)
	}
	return results
}

func (p *Processor) processParallel(ctx context.Context, paths []string, workers int) []Result {
	slots := make([]Result, len(paths))
	var group errgroup.Group
	group.SetLimit(workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			res := p.ProcessFile(ctx, path)
			slots[i] = res
			p.report(res)
			return nil
		})
	}
	_ = group.Wait()

	// drop the slots of files never submitted due to cancellation
	var results []Result
	for _, res := range slots {
		if res.Path != "" {
			results = append(results, res)
		}
	}
	return results
}

func (p *Processor) report(res Result) {
	if p.Progress != nil {
		p.Progress.Done(res)
	}
}

func (p *Processor) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return min(32, runtime.NumCPU()+4)
}

func (p *Processor) minParallel() int {
	if p.MinParallel > 0 {
		return p.MinParallel
	}
	return DefaultMinParallel
}
