package optimize

import (
	"testing"
)

func BenchmarkLevenbergMarquardt(b *testing.B) {
	p := gaussianProblem(100, 5, 1)
	initial := []float64{80, 4.5, 1.5}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := Run(p, initial, Config{Method: MethodLevenbergMarquardt})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGridSearch(b *testing.B) {
	p := gaussianProblem(100, 5, 1)
	initial := []float64{50, 2, 5}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := Run(p, initial, Config{Method: MethodGridSearch, GridPoints: 11})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnneal(b *testing.B) {
	p := gaussianProblem(100, 5, 1)
	initial := []float64{60, 3, 2}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := Run(p, initial, Config{Method: MethodAnneal, MaxIterations: 1000, Seed: 7})
		if err != nil {
			b.Fatal(err)
		}
	}
}
