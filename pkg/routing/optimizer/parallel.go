package optimizer

import (
	"context"
	"sync"
)

// ParallelEvaluator 并行评估器
//
// 各移动组独立评估后按 (增量, 组序号) 合并，结果与顺序扫描完全一致。
type ParallelEvaluator struct {
	workers int
}

// NewParallelEvaluator 创建并行评估器，workers <= 1 时顺序执行
func NewParallelEvaluator(workers int) *ParallelEvaluator {
	if workers < 1 {
		workers = 1
	}
	return &ParallelEvaluator{workers: workers}
}

// Workers 返回工作协程数
func (p *ParallelEvaluator) Workers() int {
	return p.workers
}

// evaluation 单个移动组的评估结果
type evaluation struct {
	index int
	move  Move
	found bool
}

// best 返回所有移动组中增量严格小于 threshold 的最优可行移动
func (p *ParallelEvaluator) best(ctx context.Context, s *scanner, tasks []task, threshold float64) (Move, bool) {
	if p.workers <= 1 || len(tasks) < 2*p.workers {
		return p.sequential(ctx, s, tasks, threshold)
	}

	results := p.evaluateBatch(ctx, s, tasks, threshold)
	return findBest(results)
}

// sequential 顺序扫描，已找到的最优增量作为后续组的剪枝上界
func (p *ParallelEvaluator) sequential(ctx context.Context, s *scanner, tasks []task, threshold float64) (Move, bool) {
	var best Move
	found := false
	bound := threshold
	for _, t := range tasks {
		if ctx.Err() != nil {
			break
		}
		if m, ok := s.scan(t, bound); ok {
			best, found, bound = m, true, m.Delta
		}
	}
	return best, found
}

// evaluateBatch 并行评估一批移动组，结果按组序号排列
func (p *ParallelEvaluator) evaluateBatch(ctx context.Context, s *scanner, tasks []task, threshold float64) []evaluation {
	if len(tasks) == 0 {
		return nil
	}

	resultChan := make(chan evaluation, len(tasks))
	jobChan := make(chan int, len(tasks))

	// 启动工作协程
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				m, ok := s.scan(tasks[idx], threshold)
				resultChan <- evaluation{index: idx, move: m, found: ok}
			}
		}()
	}

	for i := range tasks {
		jobChan <- i
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	results := make([]evaluation, len(tasks))
	for r := range resultChan {
		results[r.index] = r
	}
	return results
}

// findBest 按 (增量, 组序号) 选出最优结果
func findBest(results []evaluation) (Move, bool) {
	var best Move
	found := false
	for _, r := range results {
		if !r.found {
			continue
		}
		if !found || r.move.Delta < best.Delta {
			best, found = r.move, true
		}
	}
	return best, found
}
