package benchmarks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zoobzio/spanz"
)

// BenchmarkConcurrentSpanCreation tests thread safety under heavy concurrent load.
func BenchmarkConcurrentSpanCreation(b *testing.B) {
	concurrencyLevels := []int{1, 10, 50, 100, 500}

	for _, concurrency := range concurrencyLevels {
		b.Run(fmt.Sprintf("concurrent-%d", concurrency), func(b *testing.B) {
			tracer := spanz.New()
			defer tracer.Close()

			ctx := context.Background()
			spansPerWorker := b.N / concurrency
			if spansPerWorker == 0 {
				spansPerWorker = 1
			}

			var wg sync.WaitGroup
			var totalSpans int64

			b.ResetTimer()

			for i := 0; i < concurrency; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < spansPerWorker; j++ {
						_, span := tracer.Start(ctx)
						span.Close()
						atomic.AddInt64(&totalSpans, 1)
					}
				}()
			}

			wg.Wait()
			b.ReportMetric(float64(totalSpans), "total-spans")
		})
	}
}

// BenchmarkPooledGeneratorConcurrency compares pooled and direct generation under contention.
func BenchmarkPooledGeneratorConcurrency(b *testing.B) {
	for _, poolSize := range []int{0, 64, 1024} {
		b.Run(fmt.Sprintf("pool-%d", poolSize), func(b *testing.B) {
			tracer, err := spanz.NewFromConfig(spanz.Config{IDPoolSize: poolSize}, nil, nil)
			if err != nil {
				b.Fatal(err)
			}
			defer tracer.Close()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					tracer.StartRoot().Close()
				}
			})
		})
	}
}

// BenchmarkCollectorConcurrency tests collector performance under concurrent load.
func BenchmarkCollectorConcurrency(b *testing.B) {
	for _, bufSize := range []int{100, 1000} {
		b.Run(fmt.Sprintf("buffer-%d", bufSize), func(b *testing.B) {
			tracer := spanz.New()
			defer tracer.Close()

			collector := spanz.NewCollector("concurrency", bufSize)
			defer collector.Close()
			tracer.OnSpanClose(collector.Collect)

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					tracer.StartRoot().Close()
				}
			})
			b.StopTimer()

			b.ReportMetric(float64(collector.DroppedCount()), "dropped")
		})
	}
}

// BenchmarkAsyncHandlers measures worker pool dispatch under concurrent load.
func BenchmarkAsyncHandlers(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	if err := tracer.EnableWorkerPool(4, 1024); err != nil {
		b.Fatal(err)
	}

	var handled atomic.Int64
	tracer.OnSpanCloseAsync(func(spanz.SpanRecord) { handled.Add(1) })

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tracer.StartRoot().Close()
		}
	})
	b.StopTimer()

	b.ReportMetric(float64(tracer.DroppedRecords()), "dropped")
}

// BenchmarkContextConcurrency tests concurrent child creation from one shared context.
func BenchmarkContextConcurrency(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	ctx, root := tracer.Start(context.Background())
	defer root.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, child := tracer.Start(ctx)
			child.Close()
		}
	})
}
