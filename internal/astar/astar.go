package astar

import (
	"container/heap"
	"image"
	"math"

	"github.com/boljen/go-bitmap"
)

// Grid describes a search space. Cost & Walkable are supplied by the caller so
// the same search serves fixed terrain costs & live traffic costs.
type Grid struct {
	// Bounds of the search; tiles outside are never expanded.
	Bounds image.Rectangle

	// Cost of entering a tile. +Inf is impassable.
	Cost func(p image.Point) float64

	// Walkable is a cheap pre filter run before Cost.
	Walkable func(p image.Point) bool

	// MinStep is a lower bound on Cost for any walkable tile. The heuristic
	// is MinStep * manhattan distance, so this must never exceed the true
	// minimum or the search stops being optimal. 0 is treated as 1.
	MinStep float64

	// MaxIterations caps node expansions. 0 means 4 * area.
	MaxIterations int
}

type node struct {
	idx int
	g   float64
	f   float64
}

// openSet is a min heap on f; ties go to the larger g (deeper node) then the
// lower linear index, so the search is deterministic.
type openSet []node

func (h openSet) Len() int { return len(h) }

func (h openSet) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g > h[j].g
	}
	return h[i].idx < h[j].idx
}

func (h openSet) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *openSet) Push(x any) { *h = append(*h, x.(node)) }

func (h *openSet) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Find returns the cheapest 4-connected path from start to any of targets,
// including both ends, and its cost (the sum of entering every tile after start).
// Returns false if there is no path or the iteration cap is hit.
func Find(g Grid, start image.Point, targets ...image.Point) ([]image.Point, float64, bool) {
	if len(targets) == 0 || g.Cost == nil || g.Bounds.Empty() {
		return nil, 0, false
	}
	if !start.In(g.Bounds) || !g.passable(start) {
		return nil, 0, false
	}

	width := g.Bounds.Dx()
	area := width * g.Bounds.Dy()
	toIdx := func(p image.Point) int {
		return (p.Y-g.Bounds.Min.Y)*width + (p.X - g.Bounds.Min.X)
	}
	toPoint := func(i int) image.Point {
		return image.Pt(i%width+g.Bounds.Min.X, i/width+g.Bounds.Min.Y)
	}

	goals := make([]image.Point, 0, len(targets))
	isGoal := bitmap.New(area)
	for _, t := range targets {
		if !t.In(g.Bounds) {
			continue
		}
		if t == start {
			return []image.Point{start}, 0, true
		}
		goals = append(goals, t)
		isGoal.Set(toIdx(t), true)
	}
	if len(goals) == 0 {
		return nil, 0, false
	}

	minStep := g.MinStep
	if minStep <= 0 {
		minStep = 1
	}
	heuristic := func(p image.Point) float64 {
		best := math.MaxInt
		for _, t := range goals {
			d := abs(p.X-t.X) + abs(p.Y-t.Y)
			if d < best {
				best = d
			}
		}
		return float64(best) * minStep
	}

	maxIter := g.MaxIterations
	if maxIter <= 0 {
		maxIter = 4 * area
	}

	gScore := make([]float64, area)
	parent := make([]int, area)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		parent[i] = -1
	}
	closed := bitmap.New(area)

	startIdx := toIdx(start)
	gScore[startIdx] = 0
	open := &openSet{}
	heap.Init(open)
	heap.Push(open, node{idx: startIdx, g: 0, f: heuristic(start)})

	goalIdx := -1
	for iter := 0; open.Len() > 0; iter++ {
		if iter >= maxIter {
			return nil, 0, false
		}

		cur := heap.Pop(open).(node)
		if closed.Get(cur.idx) || cur.g != gScore[cur.idx] {
			continue // stale entry
		}
		if isGoal.Get(cur.idx) {
			goalIdx = cur.idx
			break
		}
		closed.Set(cur.idx, true)

		for _, n := range neighbours(toPoint(cur.idx)) {
			if !n.In(g.Bounds) {
				continue
			}
			nidx := toIdx(n)
			if closed.Get(nidx) || !g.passable(n) {
				continue
			}
			tentative := cur.g + g.Cost(n)
			if tentative >= gScore[nidx] {
				continue
			}
			gScore[nidx] = tentative
			parent[nidx] = cur.idx
			heap.Push(open, node{idx: nidx, g: tentative, f: tentative + heuristic(n)})
		}
	}
	if goalIdx < 0 {
		return nil, 0, false
	}

	path := make([]image.Point, 0, 64)
	for cur := goalIdx; cur >= 0; cur = parent[cur] {
		if len(path) >= area {
			return nil, 0, false // a cycle in parent pointers
		}
		path = append(path, toPoint(cur))
		if cur == startIdx {
			break
		}
	}
	if path[len(path)-1] != start {
		return nil, 0, false
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, gScore[goalIdx], true
}

// passable applies Walkable then checks for a finite cost
func (g Grid) passable(p image.Point) bool {
	if g.Walkable != nil && !g.Walkable(p) {
		return false
	}
	c := g.Cost(p)
	return !math.IsInf(c, 1) && !math.IsNaN(c)
}

func neighbours(p image.Point) [4]image.Point {
	return [4]image.Point{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
