package watershed

import (
	"image"
)

// Flooder runs a marker-controlled watershed over src. On return every
// pixel reachable from a seed carries that seed's label or Boundary.
type Flooder interface {
	Flood(src *image.RGBA, labels *Labels) error
}

const inQueue int32 = -2

// MeyerFlooder is a pure Go priority flood. Priorities are the largest
// per-channel difference between neighbouring pixels, neighbours are
// 4-connected, equal priorities are served first in first out and the
// outermost pixel frame is always Boundary.
type MeyerFlooder struct{}

type buckets struct {
	queues [256][]int
	heads  [256]int
	active int
	size   int
}

func (b *buckets) push(prio, idx int) {
	b.queues[prio] = append(b.queues[prio], idx)
	b.size++
	if prio < b.active {
		b.active = prio
	}
}

func (b *buckets) pop() (int, bool) {
	if b.size == 0 {
		return 0, false
	}
	for b.heads[b.active] == len(b.queues[b.active]) {
		b.queues[b.active] = b.queues[b.active][:0]
		b.heads[b.active] = 0
		b.active++
	}
	idx := b.queues[b.active][b.heads[b.active]]
	b.heads[b.active]++
	b.size--
	return idx, true
}

// Flood implements Flooder.
func (MeyerFlooder) Flood(src *image.RGBA, labels *Labels) error {
	w, h := labels.Width, labels.Height
	if src.Bounds().Dx() != w || src.Bounds().Dy() != h {
		return ErrSizeMismatch
	}
	if w == 0 || h == 0 {
		return nil
	}
	m := labels.Data
	origin := src.Bounds().Min
	pix := func(i int) []uint8 {
		off := src.PixOffset(origin.X+i%w, origin.Y+i/w)
		return src.Pix[off : off+3]
	}
	diff := func(a, b int) int {
		pa, pb := pix(a), pix(b)
		d := 0
		for c := 0; c < 3; c++ {
			v := int(pa[c]) - int(pb[c])
			if v < 0 {
				v = -v
			}
			if v > d {
				d = v
			}
		}
		return d
	}

	for x := 0; x < w; x++ {
		m[x] = Boundary
		m[(h-1)*w+x] = Boundary
	}
	for y := 0; y < h; y++ {
		m[y*w] = Boundary
		m[y*w+w-1] = Boundary
	}

	q := &buckets{active: 256}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			if m[i] < 0 {
				m[i] = 0
			}
			if m[i] != 0 {
				continue
			}
			prio := 256
			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if m[n] > 0 {
					if d := diff(i, n); d < prio {
						prio = d
					}
				}
			}
			if prio < 256 {
				q.push(prio, i)
				m[i] = inQueue
			}
		}
	}

	for {
		i, ok := q.pop()
		if !ok {
			break
		}
		var lab int32
		for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
			t := m[n]
			if t <= 0 {
				continue
			}
			if lab == 0 {
				lab = t
			} else if t != lab {
				lab = Boundary
			}
		}
		if lab == 0 {
			// Only reachable through frame pixels; leave unassigned.
			m[i] = 0
			continue
		}
		m[i] = lab
		if lab == Boundary {
			continue
		}
		for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
			if m[n] == 0 {
				q.push(diff(i, n), n)
				m[n] = inQueue
			}
		}
	}
	return nil
}
