package query

import (
	"context"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// Chain walks the outgoing SUPERSEDES edge from startID — "what does this
// decision replace" — until a node with no outgoing SUPERSEDES edge is
// reached. The last node emitted is marked is_current. A cycle, guarded by
// a visited set, truncates the walk rather than looping forever.
func Chain(ctx context.Context, st store.Store, startID uint32) (*decision.ChainResponse, error) {
	ref, err := st.NodeByDecisionID(ctx, startID)
	if err != nil {
		return nil, err
	}

	var nodes []decision.ChainNode
	visited := make(map[store.NodeRef]bool)
	truncated := false

	for {
		if visited[ref] {
			truncated = true
			break
		}
		visited[ref] = true

		props, err := st.NodeProperties(ctx, ref)
		if err != nil {
			return nil, err
		}
		node, err := chainNodeFromProperties(props)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)

		next, err := st.Outgoing(ctx, ref, decision.KindSupersedes)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			break
		}
		ref = next[0]
	}

	if len(nodes) > 0 {
		nodes[len(nodes)-1].IsCurrent = true
	}

	return &decision.ChainResponse{
		RootID:    startID,
		Chain:     nodes,
		Truncated: truncated,
	}, nil
}

func chainNodeFromProperties(props store.PropertyMap) (decision.ChainNode, error) {
	id, _ := props["decision_id"].(uint32)
	title, _ := props["title"].(string)
	statusRaw, _ := props["status"].(string)
	status, err := decision.ParseStatus(statusRaw)
	if err != nil {
		return decision.ChainNode{}, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "decoding indexed status")
	}
	dateRaw, _ := props["date"].(string)
	date, err := parseISODate(dateRaw)
	if err != nil {
		return decision.ChainNode{}, err
	}

	return decision.ChainNode{
		ID:     id,
		Title:  title,
		Status: status,
		Date:   date,
	}, nil
}
