package papers

// TransitiveReduce sets Link.Tred on every link that is not implied by a
// longer citation chain: a -> b is dropped from the reduction when b can also
// be reached from a through some other paper a cites. maxDepth bounds the
// length of the chains searched; zero means unbounded. It returns the number
// of links kept.
func TransitiveReduce(s *Set, maxDepth int) int {
	idx := s.Index()
	n := len(s.Papers)

	// out-adjacency by paper index, with the link index of each edge
	type edge struct{ to, link int }
	out := make([][]edge, n)
	for li, l := range s.Links {
		from, ok1 := idx[l.From]
		to, ok2 := idx[l.To]
		if !ok1 || !ok2 || from == to {
			s.Links[li].Tred = false
			continue
		}
		out[from] = append(out[from], edge{to: to, link: li})
	}

	// seen[v] == stamp marks v as reachable from the current source through
	// a chain of at least two links
	seen := make([]int, n)
	stamp := 0
	depth := make([]int, n)
	var queue []int

	kept := 0
	for a := 0; a < n; a++ {
		if len(out[a]) == 0 {
			continue
		}
		stamp++
		queue = queue[:0]
		for _, c := range out[a] {
			for _, e := range out[c.to] {
				if e.to != a && seen[e.to] != stamp {
					seen[e.to] = stamp
					depth[e.to] = 2
					queue = append(queue, e.to)
				}
			}
		}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			if maxDepth > 0 && depth[v] >= maxDepth {
				continue
			}
			for _, e := range out[v] {
				if e.to != a && seen[e.to] != stamp {
					seen[e.to] = stamp
					depth[e.to] = depth[v] + 1
					queue = append(queue, e.to)
				}
			}
		}

		for _, e := range out[a] {
			keep := seen[e.to] != stamp
			s.Links[e.link].Tred = keep
			if keep {
				kept++
			}
		}
	}
	return kept
}
