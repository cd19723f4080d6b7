package query

import (
	"context"
	"sort"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
)

// bfsHit records the first (shallowest) edge kind and depth a node was
// reached at during the Related traversal.
type bfsHit struct {
	depth int
	kind  decision.RelationKind
}

// Related performs a breadth-first search up to depth hops from startID,
// treating all four edge kinds as undirected for traversal (both outgoing
// and incoming enumerated at each hop) while recording the original kind
// on each result. Nodes are deduplicated by keeping the smallest depth at
// which they were first reached; ties break by the fixed kind priority
// order (§4.E Related).
func Related(ctx context.Context, st store.Store, startID uint32, depth int) (*decision.RelatedResponse, error) {
	if depth <= 0 {
		depth = 1
	}

	startRef, err := st.NodeByDecisionID(ctx, startID)
	if err != nil {
		return nil, err
	}

	hits := make(map[store.NodeRef]bfsHit)
	frontier := []store.NodeRef{startRef}
	visited := map[store.NodeRef]bool{startRef: true}

	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []store.NodeRef
		for _, ref := range frontier {
			for _, kind := range decision.RelationKinds {
				neighborsOut, err := st.Outgoing(ctx, ref, kind)
				if err != nil {
					return nil, err
				}
				neighborsIn, err := st.Incoming(ctx, ref, kind)
				if err != nil {
					return nil, err
				}

				for _, n := range append(neighborsOut, neighborsIn...) {
					if n == startRef {
						continue
					}
					if existing, ok := hits[n]; !ok || d < existing.depth ||
						(d == existing.depth && decision.ComparePriority(kind, existing.kind)) {
						hits[n] = bfsHit{depth: d, kind: kind}
					}
					if !visited[n] {
						visited[n] = true
						next = append(next, n)
					}
				}
			}
		}
		frontier = next
	}

	related := make([]decision.RelatedDecision, 0, len(hits))
	for ref, hit := range hits {
		props, err := st.NodeProperties(ctx, ref)
		if err != nil {
			return nil, err
		}
		id, _ := props["decision_id"].(uint32)
		title, _ := props["title"].(string)
		related = append(related, decision.RelatedDecision{
			ID:       id,
			Title:    title,
			Relation: hit.kind,
			Depth:    hit.depth,
		})
	}

	sort.SliceStable(related, func(i, j int) bool {
		if related[i].Depth != related[j].Depth {
			return related[i].Depth < related[j].Depth
		}
		if related[i].Relation != related[j].Relation {
			return decision.ComparePriority(related[i].Relation, related[j].Relation)
		}
		return related[i].ID < related[j].ID
	})

	return &decision.RelatedResponse{
		DecisionID: startID,
		Related:    related,
	}, nil
}
