package op

// assign reports whether every matcher can claim a distinct value, by
// Kuhn's augmenting path search over the compatibility graph. With no
// matchers it holds trivially; with more matchers than values it cannot.
func assign(ms []matcher, values []string) bool {
	if len(ms) == 0 {
		return true
	}
	if len(ms) > len(values) {
		return false
	}

	adj := make([][]int, len(ms))
	for i, m := range ms {
		for j, v := range values {
			if m.match(v) {
				adj[i] = append(adj[i], j)
			}
		}
	}

	owner := make([]int, len(values))
	for i := range owner {
		owner[i] = -1
	}

	var augment func(u int, seen []bool) bool
	augment = func(u int, seen []bool) bool {
		for _, v := range adj[u] {
			if seen[v] {
				continue
			}
			seen[v] = true
			if owner[v] == -1 || augment(owner[v], seen) {
				owner[v] = u
				return true
			}
		}
		return false
	}

	for u := range ms {
		if !augment(u, make([]bool, len(values))) {
			return false
		}
	}
	return true
}
