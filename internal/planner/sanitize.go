package planner

import "github.com/MBL11/transit-app-sub002/internal/utils"

// Sanitize removes degenerate legs produced by schedule quirks: rides between
// two stops of the same name, near-zero walks between same-named stops, and
// transfers left without a ride on both sides. Totals are recomputed. A
// journey that would lose every segment is returned unchanged. Sanitize is
// idempotent.
func Sanitize(j Journey, nearZeroWalk float64) Journey {
	kept := make([]Segment, 0, len(j.Segments))
	for _, s := range j.Segments {
		if degenerate(s, nearZeroWalk) {
			continue
		}
		kept = append(kept, s)
	}
	kept = dropDanglingTransfers(kept)
	if len(kept) == 0 {
		return j
	}

	out := j
	out.Segments = kept
	out.Recompute()
	return out
}

func degenerate(s Segment, nearZeroWalk float64) bool {
	sameName := utils.SameName(s.From.Name, s.To.Name) || (s.From.ID != "" && s.From.ID == s.To.ID)
	switch {
	case s.Kind == SegmentTransit:
		return sameName
	case s.Transfer:
		return false
	}
	return sameName && s.Distance < nearZeroWalk
}

// dropDanglingTransfers removes transfer walks whose neighbours are not both
// rides, repeating until none is left.
func dropDanglingTransfers(segments []Segment) []Segment {
	for {
		removed := false
		out := segments[:0:0]
		for i, s := range segments {
			if s.Transfer {
				before := i > 0 && segments[i-1].Kind == SegmentTransit
				after := i+1 < len(segments) && segments[i+1].Kind == SegmentTransit
				if !before || !after {
					removed = true
					continue
				}
			}
			out = append(out, s)
		}
		if !removed {
			return out
		}
		segments = out
	}
}
