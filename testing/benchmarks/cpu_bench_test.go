package benchmarks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/spanz"
	"github.com/zoobzio/spanz/propagation"
	otelprop "go.opentelemetry.io/otel/propagation"
)

// BenchmarkSpanCreationRate measures raw span creation throughput.
func BenchmarkSpanCreationRate(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	ctx := context.Background()

	b.ResetTimer()
	start := time.Now()

	for i := 0; i < b.N; i++ {
		_, span := tracer.Start(ctx)
		span.Close()
	}

	elapsed := time.Since(start)
	b.ReportMetric(float64(b.N)/elapsed.Seconds(), "spans/sec")
}

// BenchmarkSpanCreationRateParallel measures parallel span creation throughput.
func BenchmarkSpanCreationRateParallel(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	ctx := context.Background()
	var counter int64

	b.ResetTimer()
	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, span := tracer.Start(ctx)
			span.Close()
			atomic.AddInt64(&counter, 1)
		}
	})

	elapsed := time.Since(start)
	b.ReportMetric(float64(counter)/elapsed.Seconds(), "spans/sec")
}

// BenchmarkIDGeneration compares generator implementations.
func BenchmarkIDGeneration(b *testing.B) {
	pooled := spanz.NewPooledGenerator(spanz.DefaultGenerator(), 1024)
	defer pooled.Close()

	generators := map[string]spanz.IDGenerator{
		"default": spanz.DefaultGenerator(),
		"seeded":  spanz.NewSeededGenerator(1),
		"pooled":  pooled,
	}

	for name, gen := range generators {
		b.Run(name+"/trace", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = gen.NewTraceID()
			}
		})
		b.Run(name+"/span", func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = gen.NewSpanID()
			}
		})
	}
}

// BenchmarkIDGenerationParallel tests concurrent ID generation.
func BenchmarkIDGenerationParallel(b *testing.B) {
	gen := spanz.DefaultGenerator()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = gen.NewSpanID()
		}
	})
}

// BenchmarkContextRoundTrip measures extracting a context and starting a child from it.
func BenchmarkContextRoundTrip(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	root := tracer.StartRoot(spanz.WithTraceOptions(spanz.NewTraceOptions().WithSampling(true)))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		child := tracer.StartFromContext(spanz.ExtractContext(root))
		child.Close()
	}
}

// BenchmarkSpanHierarchy measures nested span creation cost.
func BenchmarkSpanHierarchy(b *testing.B) {
	for _, depth := range []int{1, 5, 10, 20} {
		b.Run(fmt.Sprintf("depth-%d", depth), func(b *testing.B) {
			tracer := spanz.New()
			defer tracer.Close()

			spans := make([]*spanz.Span, depth)
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				ctx := context.Background()
				for d := 0; d < depth; d++ {
					ctx, spans[d] = tracer.Start(ctx)
				}
				for d := depth - 1; d >= 0; d-- {
					spans[d].Close()
				}
			}
		})
	}
}

// BenchmarkTraceparent measures header encoding and decoding.
func BenchmarkTraceparent(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	state, err := spanz.NewTraceState(
		spanz.TraceStateEntry{Key: "congo", Value: "t61rcWkgMzE"},
		spanz.TraceStateEntry{Key: "rojo", Value: "00f067aa0ba902b7"},
	)
	if err != nil {
		b.Fatal(err)
	}
	root := tracer.StartRoot(spanz.WithTraceState(state))
	ctx := spanz.ContextWithSpan(context.Background(), root)
	prop := propagation.TraceContext{}

	b.Run("inject", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			prop.Inject(ctx, otelprop.MapCarrier{})
		}
	})

	carrier := otelprop.MapCarrier{}
	prop.Inject(ctx, carrier)

	b.Run("extract", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := prop.ExtractSpanContext(carrier); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkCollectorThroughput measures collector processing speed.
func BenchmarkCollectorThroughput(b *testing.B) {
	tracer := spanz.New()
	defer tracer.Close()

	collector := spanz.NewCollector("throughput", 10000)
	defer collector.Close()
	collector.SetSyncMode(true)
	tracer.OnSpanClose(collector.Collect)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		tracer.StartRoot().Close()
		if i%1000 == 999 {
			collector.Export()
		}
	}
}
