package images

import (
	"math/rand"
	"testing"
)

// BenchmarkIoU covers the overlap shapes NMS sees on a crowded frame.
func BenchmarkIoU(b *testing.B) {
	cases := []struct {
		name string
		a, o Rect
	}{
		{"disjoint", Rect{X1: 0, Y1: 0, X2: 0.1, Y2: 0.1}, Rect{X1: 0.5, Y1: 0.5, X2: 0.6, Y2: 0.6}},
		{"identical", Rect{X1: 0.2, Y1: 0.2, X2: 0.6, Y2: 0.6}, Rect{X1: 0.2, Y1: 0.2, X2: 0.6, Y2: 0.6}},
		{"partial", Rect{X1: 0, Y1: 0, X2: 0.5, Y2: 0.5}, Rect{X1: 0.25, Y1: 0.25, X2: 0.75, Y2: 0.75}},
		{"contained", Rect{X1: 0, Y1: 0, X2: 1, Y2: 1}, Rect{X1: 0.4, Y1: 0.4, X2: 0.5, Y2: 0.5}},
	}

	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = CalculateIoU(c.a, c.o)
			}
		})
	}
}

func BenchmarkIoU_Random(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	rects := make([]Rect, 1024)
	for i := range rects {
		x, y := rng.Float32(), rng.Float32()
		rects[i] = Rect{X1: x, Y1: y, X2: x + rng.Float32()*0.3, Y2: y + rng.Float32()*0.3}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CalculateIoU(rects[i%len(rects)], rects[(i+1)%len(rects)])
	}
}
