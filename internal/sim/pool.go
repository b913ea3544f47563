package sim

import "sync"

// DeltaPool recycles per-tick velocity delta buffers of two floats per node.
type DeltaPool struct {
	pool sync.Pool
}

func NewDeltaPool() *DeltaPool {
	return &DeltaPool{
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0)
			},
		},
	}
}

// Get returns a zeroed buffer of length 2*n.
func (p *DeltaPool) Get(n int) []float64 {
	buf := p.pool.Get().([]float64)
	if cap(buf) < 2*n {
		return make([]float64, 2*n)
	}
	buf = buf[:2*n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (p *DeltaPool) Put(buf []float64) {
	p.pool.Put(buf[:0])
}
