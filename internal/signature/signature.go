package signature

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/bdougie/boxshadow/internal/models"
)

// Dimensions is the length of a frame signature.
const Dimensions = 4

// Result is one computed signature
type Result struct {
	Frame     int
	Signature []float32
	Error     error
}

// Work is a unit of signature work
type Work struct {
	Index  int
	Frame  models.Frame
	Result chan<- Result
}

// Service computes frame color signatures on a pool of workers and caches them
type Service struct {
	numWorkers int
	workQueue  chan Work
	cache      sync.Map // frame hash -> []float32
	wg         sync.WaitGroup
}

// NewService creates a signature service with the specified number of workers
func NewService(numWorkers int) *Service {
	if numWorkers <= 0 {
		numWorkers = 4
	}

	service := &Service{
		numWorkers: numWorkers,
		workQueue:  make(chan Work, 100),
	}
	service.startWorkers()
	return service
}

func (s *Service) startWorkers() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for work := range s.workQueue {
				key := hashFrame(work.Frame)
				if cached, ok := s.cache.Load(key); ok {
					work.Result <- Result{Frame: work.Index, Signature: cached.([]float32)}
					continue
				}

				sig, err := Compute(work.Frame)
				if err == nil {
					s.cache.Store(key, sig)
				}
				work.Result <- Result{Frame: work.Index, Signature: sig, Error: err}
			}
		}()
	}
}

// Frames computes the signature of every frame, in frame order.
func (s *Service) Frames(ctx context.Context, frames []models.Frame) ([][]float32, error) {
	results := make(chan Result, len(frames))
	go func() {
		for i, f := range frames {
			select {
			case s.workQueue <- Work{Index: i, Frame: f, Result: results}:
			case <-ctx.Done():
				return
			}
		}
	}()

	out := make([][]float32, len(frames))
	for range frames {
		select {
		case res := <-results:
			if res.Error != nil {
				return nil, fmt.Errorf("frame %d: %w", res.Frame, res.Error)
			}
			out[res.Frame] = res.Signature
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// Close shuts down the service and waits for all workers to finish
func (s *Service) Close() {
	close(s.workQueue)
	s.wg.Wait()
}

// Compute returns [L, a, b, contrast] for a frame: the mean CIE Lab color
// and the standard deviation of lightness.
func Compute(frame models.Frame) ([]float32, error) {
	if len(frame) == 0 {
		return make([]float32, Dimensions), nil
	}

	var sumL, sumA, sumB, sumL2 float64
	for _, hex := range frame {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("bad color %q: %w", hex, err)
		}
		l, a, b := c.Lab()
		sumL += l
		sumA += a
		sumB += b
		sumL2 += l * l
	}

	n := float64(len(frame))
	meanL := sumL / n
	variance := math.Max(sumL2/n-meanL*meanL, 0)
	return []float32{
		float32(meanL),
		float32(sumA / n),
		float32(sumB / n),
		float32(math.Sqrt(variance)),
	}, nil
}

func hashFrame(frame models.Frame) uint64 {
	h := fnv.New64a()
	for _, c := range frame {
		h.Write([]byte(c))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
