// Package parallel はデータ並列処理のためのヘルパーを提供します。
//
// 学習セッションは NewPool で専用のワーカープールを作成し、終了時に Close します。
// 推論など単発の処理には Parallelize を使います。
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize は items 個の要素を workers 個の連続区間に分割し、
// 各区間 [start, end) に対して fn を並列に実行します。
// workers が 0 以下の場合は CPU コア数を使用します。
func Parallelize(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は要素数が threshold を超える場合のみ並列化します。
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, workers, fn)
}
