package interpolation

import (
	"runtime"
	"sync"

	"github.com/liangfu/volrender/internal/models"
)

// ValidReduction reports whether factor actually reduces the volume.
func ValidReduction(factor float64) bool {
	return factor > 0 && factor < 1
}

// Resample downsamples vol by factor along every axis using trilinear
// interpolation. The physical extent is preserved exactly: spacing grows
// by (n-1)/(n'-1), which is 1/factor up to rounding of the new dims.
//
// When factor is outside (0, 1) the source is returned unchanged and the
// second result is false. The source is never modified.
func Resample(vol *models.ScalarVolume, factor float64, workers int) (*models.ScalarVolume, bool) {
	if !ValidReduction(factor) {
		return vol, false
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	out := &models.ScalarVolume{
		Origin:     vol.Origin,
		Components: vol.Components,
	}
	// step is the source index distance between consecutive output samples
	var step [3]float64
	for i := range out.Dims {
		n := vol.Dims[i]
		m := scaledDim(n, factor)
		out.Dims[i] = m
		step[i] = float64(n-1) / float64(m-1)
		out.Spacing[i] = vol.Spacing[i] * step[i]
	}
	out.Data = make([]float64, out.Dims[0]*out.Dims[1]*out.Dims[2]*out.Components)

	// Slices along z are independent; each goroutine writes its own range.
	depth := out.Dims[2]
	if workers > depth {
		workers = depth
	}
	slicesPerWorker := (depth + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * slicesPerWorker
		end := start + slicesPerWorker
		if end > depth {
			end = depth
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for z := start; z < end; z++ {
				fz := float64(z) * step[2]
				for y := 0; y < out.Dims[1]; y++ {
					fy := float64(y) * step[1]
					for x := 0; x < out.Dims[0]; x++ {
						fx := float64(x) * step[0]
						for c := 0; c < out.Components; c++ {
							out.Set(x, y, z, c, Trilinear(vol, c, fx, fy, fz))
						}
					}
				}
			}
		}(start, end)
	}
	wg.Wait()

	return out, true
}
