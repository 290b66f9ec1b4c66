package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool は固定数のゴルーチンで構成されるワーカープールです。
// 学習セッションごとに作成し、セッション終了時に Close します。
type Pool struct {
	workers int
	tasks   chan func()
	done    sync.WaitGroup
	closed  atomic.Bool
	once    sync.Once
}

// NewPool は workers 個のワーカーを起動します。
// workers が 0 以下の場合は CPU コア数を使用します。
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		workers: workers,
		tasks:   make(chan func(), workers),
	}
	if workers > 1 {
		p.done.Add(workers)
		for i := 0; i < workers; i++ {
			go p.worker()
		}
	}
	return p
}

func (p *Pool) worker() {
	defer p.done.Done()
	for task := range p.tasks {
		task()
	}
}

// Workers はワーカー数を返します。
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.workers
}

// NumChunks は items 個の要素を chunk 個ずつ分けたときの区間数を返します。
func NumChunks(items, chunk int) int {
	if items <= 0 {
		return 0
	}
	if chunk <= 0 {
		return 1
	}
	return (items + chunk - 1) / chunk
}

// Run は [0, items) を chunk 個ずつの区間に分け、各区間に対して fn(idx, start, end) を
// ワーカー上で実行し、すべての完了を待ちます。idx は区間の番号で、区間の境界は
// ワーカー数に依存しません。fn の中から Run を呼び出してはいけません。
//
// 単一ワーカー、単一区間、または Close 済みの場合は呼び出し元で順に実行します。
func (p *Pool) Run(items, chunk int, fn func(idx, start, end int)) {
	n := NumChunks(items, chunk)
	if n == 0 {
		return
	}
	if chunk <= 0 {
		chunk = items
	}

	if n == 1 || p == nil || p.workers == 1 || p.closed.Load() {
		for i := 0; i < n; i++ {
			start, end := bounds(i, chunk, items)
			fn(i, start, end)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		idx := i
		start, end := bounds(idx, chunk, items)
		p.tasks <- func() {
			defer wg.Done()
			fn(idx, start, end)
		}
	}
	wg.Wait()
}

// Parallelize はワーカー数に合わせて [0, items) を分割し fn を実行します。
func (p *Pool) Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	w := p.Workers()
	chunk := (items + w - 1) / w
	p.Run(items, chunk, func(_, start, end int) {
		fn(start, end)
	})
}

// Close はワーカーを停止します。複数回呼び出しても安全です。
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.closed.Store(true)
		close(p.tasks)
		p.done.Wait()
	})
}

func bounds(idx, chunk, items int) (int, int) {
	start := idx * chunk
	end := start + chunk
	if end > items {
		end = items
	}
	return start, end
}
