package voronoi

// CandidateFilter accepts or rejects a candidate point (x, y) based
// purely on the given (x, y).
// These filters are run before SiteFilter(s) which naturally require
// us to iterate each site.
type CandidateFilter func(x, y int) bool

// SiteFilter is a filter for a candidate (x, y) point that is run
// against every current Site in the builder.
// Ie. we must 'accept' the candidate point (x, y) when compared
// with every existing Site that we've previously accepted.
type SiteFilter func(ax, ay, sx, sy int) bool

// Separated rejects candidates within Chebyshev (chessboard) distance `dist`
// of an existing site. Separated(1) drops any site touching another, including
// diagonally.
func (b *Builder) Separated(dist int) SiteFilter {
	return func(ax, ay, sx, sy int) bool {
		dx, dy := ax-sx, ay-sy
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dy > dx {
			dx = dy
		}
		return dx > dist
	}
}
