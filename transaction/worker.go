/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */
package transaction

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/endink/go-twopc/util"
)

type taskStop struct{}

type task struct {
	fn   action
	done chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// worker is a goroutine locked to one OS thread. Every action of a participant
// transaction runs on the worker bound to it, never on the caller goroutine.
type worker struct {
	name     string
	sender   chan<- interface{}
	receiver <-chan interface{}
	wg       *sync.WaitGroup
}

const workerCapacity = 16

func newWorker(name string, wg *sync.WaitGroup) *worker {
	ch := make(chan interface{}, workerCapacity)
	return &worker{
		name:     name,
		sender:   ch,
		receiver: ch,
		wg:       wg,
	}
}

func (w *worker) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		for {
			t := <-w.receiver
			if _, ok := t.(taskStop); ok {
				return
			}
			tk := t.(task)
			tk.done <- w.handle(tk.fn)
		}
	}()
}

func (w *worker) handle(fn action) (result taskResult) {
	defer func() {
		if x := recover(); x != nil {
			log.Errorf("Uncaught panic on worker '%s': %v", w.name, x)
			TxStats.AddInternalErrors(w.name, "Panic")
			result = taskResult{err: fmt.Errorf("worker '%s' panic: %v", w.name, x)}
		}
	}()
	v, err := fn()
	return taskResult{value: v, err: err}
}

// execute blocks until fn has run on the worker thread.
func (w *worker) execute(fn action) (interface{}, error) {
	done := make(chan taskResult, 1)
	w.sender <- task{fn: fn, done: done}
	r := <-done
	return r.value, r.err
}

func (w *worker) stop() {
	w.sender <- taskStop{}
}

// workerPool hands out at most capacity workers, one per live participant transaction.
type workerPool struct {
	name     string
	capacity int

	mu      sync.Mutex
	idle    []*worker
	created int
	closed  bool
	wg      sync.WaitGroup
}

func newWorkerPool(name string, capacity int) *workerPool {
	return &workerPool{name: name, capacity: capacity}
}

func (p *workerPool) acquire() (*worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("worker pool '%s' is closed", p.name)
	}
	if n := len(p.idle); n > 0 {
		w := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return w, nil
	}
	if p.created >= p.capacity {
		return nil, util.Wrapf(errPoolExhausted, "worker pool '%s' has %d workers in use", p.name, p.created)
	}
	p.created++
	w := newWorker(fmt.Sprintf("%s-worker-%d", p.name, p.created), &p.wg)
	w.start()
	return w, nil
}

func (p *workerPool) release(w *worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		w.stop()
		return
	}
	p.idle = append(p.idle, w)
}

// inUse returns the number of workers bound to transactions.
func (p *workerPool) inUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created - len(p.idle)
}

func (p *workerPool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// close stops idle workers now and busy ones when they are released.
func (p *workerPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, w := range idle {
		w.stop()
	}
}

var errPoolExhausted = fmt.Errorf("no idle worker left")
