package emitter

import (
	"runtime"
	"slices"
	"sync"

	"github.com/pthm-cable/flockdraw/systems"
	"github.com/pthm-cable/flockdraw/telemetry"
)

// parallelThreshold is the minimum particle count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// workChunk is the set of groups one worker owns for a pass.
type workChunk struct {
	e      *Emitter
	groups [][]int // slot indices, one slice per group
}

// workerPool runs the same-group part of the neighbor pass.
// Each worker only writes to particles of the groups in its chunk.
type workerPool struct {
	numWorkers int

	workChan chan workChunk
	doneChan chan telemetry.BandCounts
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool

	// Reused per pass
	byGroup map[int][]int
	chunks  []workChunk
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{
		numWorkers: workers,
		byGroup:    make(map[int][]int),
		chunks:     make([]workChunk, workers),
	}
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan telemetry.BandCounts, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for range p.numWorkers {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- chunk.e.interactWithinGroups(chunk.groups)
		}
	}
}

// neighborPassParallel splits same-group interactions across the pool by group,
// waits for every worker, then runs cross-group repulsion on this goroutine.
func (e *Emitter) neighborPassParallel() telemetry.BandCounts {
	p := e.pool
	p.start()

	for g, members := range p.byGroup {
		p.byGroup[g] = members[:0]
	}
	for i := range e.slots {
		g := e.slots[i].group
		p.byGroup[g] = append(p.byGroup[g], i)
	}

	// Largest groups first onto the least loaded chunk
	groups := make([][]int, 0, len(p.byGroup))
	for _, members := range p.byGroup {
		if len(members) > 0 {
			groups = append(groups, members)
		}
	}
	slices.SortFunc(groups, func(a, b []int) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return a[0] - b[0]
	})

	load := make([]int, p.numWorkers)
	for c := range p.chunks {
		p.chunks[c] = workChunk{e: e, groups: p.chunks[c].groups[:0]}
	}
	for _, members := range groups {
		c := 0
		for w := 1; w < p.numWorkers; w++ {
			if load[w] < load[c] {
				c = w
			}
		}
		p.chunks[c].groups = append(p.chunks[c].groups, members)
		load[c] += len(members) * len(members)
	}

	dispatched := 0
	for c := range p.chunks {
		if len(p.chunks[c].groups) == 0 {
			continue
		}
		p.workChan <- p.chunks[c]
		dispatched++
	}

	var counts telemetry.BandCounts
	for range dispatched {
		counts.Add(<-p.doneChan)
	}

	counts.Add(e.interactAcrossGroups())
	return counts
}

// interactWithinGroups handles same-group pairs whose first slot is in groups.
func (e *Emitter) interactWithinGroups(groups [][]int) telemetry.BandCounts {
	var counts telemetry.BandCounts
	fc := &e.cfg.Flocking
	for _, members := range groups {
		for _, i := range members {
			a := &e.slots[i]
			for j := range e.strategy.Candidates(e, i) {
				b := &e.slots[j]
				if b.group != a.group {
					continue
				}
				tally(&counts, systems.Interact(a.kin, b.kin, a.group, b.group, fc))
			}
		}
	}
	return counts
}

// interactAcrossGroups handles pairs from different groups.
func (e *Emitter) interactAcrossGroups() telemetry.BandCounts {
	var counts telemetry.BandCounts
	fc := &e.cfg.Flocking
	for i := range e.slots {
		a := &e.slots[i]
		for j := range e.strategy.Candidates(e, i) {
			b := &e.slots[j]
			if b.group == a.group {
				continue
			}
			tally(&counts, systems.Interact(a.kin, b.kin, a.group, b.group, fc))
		}
	}
	return counts
}
