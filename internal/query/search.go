// Package query implements the three read operations over an indexed
// store: similarity search, supersession chain walk, and related-decision
// lookup. Every operation opens no write transaction; they are safe to run
// concurrently with each other, and with a sync under a shared lock.
package query

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/embedder"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// SearchOptions controls a single Search call.
type SearchOptions struct {
	Limit  int
	Status decision.Status
	Tags   []string
	Enrich bool
}

// Search embeds query, over-fetches 2x limit nearest neighbors, filters by
// status and tag subset, stable-sorts by descending score, and optionally
// attaches each result's 1-hop neighbors (§4.E Search).
func Search(ctx context.Context, st store.Store, emb embedder.Embedder, query string, opts SearchOptions) (*decision.SearchResponse, error) {
	if opts.Limit <= 0 {
		return nil, helixerr.New(helixerr.CodeQueryInvalidArgs, "limit must be >= 1")
	}

	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeEmbedderRequestFailure, "embedding search query")
	}

	raw, err := st.VectorSearch(ctx, vec, opts.Limit*2)
	if err != nil {
		return nil, err
	}

	var candidates []decision.SearchResult
	for _, match := range raw {
		props, err := st.NodeProperties(ctx, match.Node)
		if err != nil {
			if helixerr.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		result, err := resultFromProperties(props)
		if err != nil {
			return nil, err
		}
		if !passesFilters(result, opts) {
			continue
		}
		result.Score = 1 - match.Distance

		if opts.Enrich {
			related, err := oneHopNeighbors(ctx, st, match.Node)
			if err != nil {
				return nil, err
			}
			result.Related = related
		}

		candidates = append(candidates, result)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	return &decision.SearchResponse{
		Query:   query,
		Count:   len(candidates),
		Results: candidates,
	}, nil
}

func passesFilters(r decision.SearchResult, opts SearchOptions) bool {
	if opts.Status != "" && r.Status != opts.Status {
		return false
	}
	if len(opts.Tags) == 0 {
		return true
	}
	return lo.Every(r.Tags, opts.Tags)
}

func oneHopNeighbors(ctx context.Context, st store.Store, ref store.NodeRef) ([]decision.RelatedNeighbor, error) {
	var neighbors []decision.RelatedNeighbor
	for _, kind := range decision.RelationKinds {
		out, err := st.Outgoing(ctx, ref, kind)
		if err != nil {
			return nil, err
		}
		for _, n := range out {
			neighbor, err := neighborSummary(ctx, st, n, kind)
			if err != nil {
				return nil, err
			}
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors, nil
}

func neighborSummary(ctx context.Context, st store.Store, ref store.NodeRef, kind decision.RelationKind) (decision.RelatedNeighbor, error) {
	props, err := st.NodeProperties(ctx, ref)
	if err != nil {
		return decision.RelatedNeighbor{}, err
	}
	id, _ := props["decision_id"].(uint32)
	title, _ := props["title"].(string)
	return decision.RelatedNeighbor{ID: id, Title: title, Relation: kind}, nil
}

func resultFromProperties(props store.PropertyMap) (decision.SearchResult, error) {
	id, _ := props["decision_id"].(uint32)
	title, _ := props["title"].(string)
	statusRaw, _ := props["status"].(string)
	status, err := decision.ParseStatus(statusRaw)
	if err != nil {
		return decision.SearchResult{}, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "decoding indexed status")
	}
	dateRaw, _ := props["date"].(string)
	date, err := parseISODate(dateRaw)
	if err != nil {
		return decision.SearchResult{}, err
	}

	tags, _ := props["tags"].([]string)
	deciders, _ := props["deciders"].([]string)
	filePath, _ := props["file_path"].(string)
	uuid, _ := props["uuid"].(string)

	return decision.SearchResult{
		ID:       id,
		UUID:     uuid,
		Title:    title,
		Status:   status,
		Tags:     tags,
		Date:     date,
		Deciders: deciders,
		FilePath: filePath,
	}, nil
}
