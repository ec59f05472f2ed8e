package risk

// Connected reports whether a chain of territories owned by ownerID links
// from one territory to to, walking the adjacency graph breadth-first and
// only expanding through the owner's territories. Both endpoints must
// belong to the owner, and from == to is never connected. This gates the
// fortify move; attacks use direct adjacency instead.
func Connected(from, to, ownerID string, adjacency map[string][]string, ownerOf map[string]string) bool {
	if from == to {
		return false
	}
	if ownerOf[from] != ownerID || ownerOf[to] != ownerID {
		return false
	}

	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[current] {
			if visited[next] || ownerOf[next] != ownerID {
				continue
			}
			if next == to {
				return true
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}
