// Package idgen genera identificadores enteros únicos dentro del proceso.
package idgen

import (
	"sync/atomic"
	"time"
)

// Generator entrega ids estrictamente crecientes, nunca menores que los milisegundos Unix
// actuales, de modo que conviven con los ids por timestamp ya persistidos.
type Generator struct {
	last atomic.Int64
	now  func() time.Time
}

func New() *Generator {
	return &Generator{now: time.Now}
}

// Observe asegura que los próximos ids sean mayores que id.
func (g *Generator) Observe(id int64) {
	for {
		prev := g.last.Load()
		if id <= prev || g.last.CompareAndSwap(prev, id) {
			return
		}
	}
}

func (g *Generator) Next() int64 {
	for {
		prev := g.last.Load()
		next := g.now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if g.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
