// Package sched runs tasks over shared resources on a fixed worker pool.
// Tasks declare the resources they read and write; the graph derives the
// ordering from those declarations, so callers never take locks.
package sched

import (
	"sync"
)

// Resource is a named piece of state that tasks contend over. The counters
// track how many writers and readers have been submitted against it and
// how many of those have finished.
type Resource struct {
	Name string

	subWrites, subReads   int
	doneWrites, doneReads int
}

type task struct {
	name       string
	fn         func()
	queue      string
	queueOrder int

	// Counter snapshots taken at submission. The task is runnable once
	// every earlier conflicting access has completed.
	needWrites []resourceNeed
	needReads  []resourceNeed
}

type resourceNeed struct {
	res           *Resource
	writes, reads int
}

func (t *task) declaresWrite(r *Resource) bool {
	for _, n := range t.needWrites {
		if n.res == r {
			return true
		}
	}
	return false
}

func (t *task) declaresRead(r *Resource) bool {
	for _, n := range t.needReads {
		if n.res == r {
			return true
		}
	}
	return false
}

// Graph schedules tasks whose dependencies follow from declared read and
// write sets. A reader waits for all earlier submitted writers of its
// resources; a writer additionally waits for all earlier readers. Tasks
// sharing a queue tag run one at a time in submission order.
type Graph struct {
	mu   sync.Mutex
	cond *sync.Cond

	workers int
	pending []*task
	queues  map[string]*queueState
	active  int
	closed  bool

	wg sync.WaitGroup
}

type queueState struct {
	running bool
	next    int // submission order of the next runnable task
	asgn    int // next order to assign
}

// NewGraph starts a graph with the given number of worker goroutines.
func NewGraph(workers int) *Graph {
	if workers < 1 {
		workers = 1
	}
	g := &Graph{workers: workers, queues: map[string]*queueState{}}
	g.cond = sync.NewCond(&g.mu)
	for i := 0; i < workers; i++ {
		go g.worker()
	}
	return g
}

// Resource registers a named resource.
func (g *Graph) Resource(name string) *Resource {
	return &Resource{Name: name}
}

// Submit adds a task. reads and writes declare every resource the function
// touches; queue, if non-empty, serializes the task against others with
// the same tag in submission order. The function may run before Submit
// returns.
func (g *Graph) Submit(
	name string, reads, writes []*Resource, queue string, fn func(),
) {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := &task{name: name, fn: fn, queue: queue}
	for _, r := range writes {
		// A resource declared twice, as happens when a task spans a
		// wrapped neighbor pair in a small run, counts once.
		if t.declaresWrite(r) {
			continue
		}
		t.needWrites = append(t.needWrites,
			resourceNeed{r, r.subWrites, r.subReads})
		r.subWrites++
	}
	for _, r := range reads {
		if t.declaresWrite(r) || t.declaresRead(r) {
			continue
		}
		t.needReads = append(t.needReads,
			resourceNeed{r, r.subWrites, 0})
		r.subReads++
	}
	if queue != "" {
		q := g.queues[queue]
		if q == nil {
			q = &queueState{}
			g.queues[queue] = q
		}
		t.queueOrder = q.asgn
		q.asgn++
	}

	g.wg.Add(1)
	g.pending = append(g.pending, t)
	g.cond.Broadcast()
}

// Wait blocks until every submitted task has finished.
func (g *Graph) Wait() {
	g.wg.Wait()
}

// Stop shuts the worker goroutines down. The graph cannot be reused.
func (g *Graph) Stop() {
	g.mu.Lock()
	g.closed = true
	g.cond.Broadcast()
	g.mu.Unlock()
}

func (g *Graph) runnable(t *task) bool {
	for _, n := range t.needWrites {
		if n.res.doneWrites < n.writes || n.res.doneReads < n.reads {
			return false
		}
	}
	for _, n := range t.needReads {
		if n.res.doneWrites < n.writes {
			return false
		}
	}
	if t.queue != "" {
		q := g.queues[t.queue]
		if q.running || q.next != t.queueOrder {
			return false
		}
	}
	return true
}

func (g *Graph) worker() {
	g.mu.Lock()
	for {
		var t *task
		for i, cand := range g.pending {
			if g.runnable(cand) {
				t = cand
				g.pending = append(g.pending[:i], g.pending[i+1:]...)
				break
			}
		}
		if t == nil {
			if g.closed {
				g.mu.Unlock()
				return
			}
			g.cond.Wait()
			continue
		}

		if t.queue != "" {
			g.queues[t.queue].running = true
		}
		g.active++
		g.mu.Unlock()

		t.fn()

		g.mu.Lock()
		g.active--
		for _, n := range t.needWrites {
			n.res.doneWrites++
		}
		for _, n := range t.needReads {
			n.res.doneReads++
		}
		if t.queue != "" {
			q := g.queues[t.queue]
			q.running = false
			q.next++
		}
		g.wg.Done()
		g.cond.Broadcast()
	}
}
