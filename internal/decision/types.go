// Package decision defines the data model shared by every component of the
// sync-and-query engine: the Decision record, its typed Relationships, and
// the response envelopes returned by the query engine.
package decision

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Status is the lifecycle state of a Decision.
type Status string

const (
	StatusProposed   Status = "proposed"
	StatusAccepted   Status = "accepted"
	StatusSuperseded Status = "superseded"
	StatusDeprecated Status = "deprecated"
)

// ParseStatus validates a raw frontmatter string against the known enum.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusProposed, StatusAccepted, StatusSuperseded, StatusDeprecated:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// RelationKind identifies one of the four directed edge types a Decision
// can declare in its frontmatter.
type RelationKind string

const (
	KindSupersedes RelationKind = "SUPERSEDES"
	KindAmends     RelationKind = "AMENDS"
	KindDependsOn  RelationKind = "DEPENDS_ON"
	KindRelatedTo  RelationKind = "RELATED_TO"
)

// RelationKinds lists the four edge kinds in the fixed priority order used
// to tie-break Related query results (§4.E).
var RelationKinds = []RelationKind{KindSupersedes, KindAmends, KindDependsOn, KindRelatedTo}

// relationPriority returns the tie-break rank of a kind; lower sorts first.
func relationPriority(k RelationKind) int {
	for i, candidate := range RelationKinds {
		if candidate == k {
			return i
		}
	}
	return len(RelationKinds)
}

// ComparePriority reports whether a should sort before b under the fixed
// kind priority order (SUPERSEDES, AMENDS, DEPENDS_ON, RELATED_TO).
func ComparePriority(a, b RelationKind) bool {
	return relationPriority(a) < relationPriority(b)
}

// Relationship is a directed, typed edge between two decisions, identified
// by their author-assigned decision IDs.
type Relationship struct {
	From uint32
	Kind RelationKind
	To   uint32
}

// Decision is the unit of indexing: a markdown file's frontmatter plus body.
type Decision struct {
	ID          uint32
	UUID        string
	Title       string
	Status      Status
	Date        time.Time
	Deciders    []string
	Tags        []string
	FilePath    string
	ContentHash string
	GitCommit   string
	Body        string

	// Embedding is populated by the embedder adapter for new/changed
	// decisions only; it is never read back from disk.
	Embedding []float32

	// Relations holds the four frontmatter-declared relationship keys,
	// each already normalized to a list regardless of scalar/list surface
	// form in the source YAML (see IDList).
	Relations map[RelationKind][]uint32
}

// Edges returns the Decision's outgoing relationships as Relationship values,
// in the fixed kind priority order, for a stable upsert_edges call.
func (d *Decision) Edges() []Relationship {
	var edges []Relationship
	for _, kind := range RelationKinds {
		for _, to := range d.Relations[kind] {
			edges = append(edges, Relationship{From: d.ID, Kind: kind, To: to})
		}
	}
	return edges
}

// SearchResult is one row of a SearchResponse.
type SearchResult struct {
	ID        uint32             `json:"id"`
	UUID      string             `json:"uuid,omitempty"`
	Title     string             `json:"title"`
	Status    Status             `json:"status"`
	Score     float32            `json:"score"`
	Tags      []string           `json:"tags"`
	Date      time.Time          `json:"date"`
	Deciders  []string           `json:"deciders"`
	FilePath  string             `json:"file_path"`
	Related   []RelatedNeighbor  `json:"related,omitempty"`
}

// RelatedNeighbor is the compact neighbor shape attached to enriched search
// results (§4.E Search step 5).
type RelatedNeighbor struct {
	ID       uint32       `json:"id"`
	Title    string       `json:"title"`
	Relation RelationKind `json:"relation"`
}

// SearchResponse is the stable JSON envelope returned by the search query.
type SearchResponse struct {
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// ChainNode is one hop of a supersession chain.
type ChainNode struct {
	ID        uint32    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Date      time.Time `json:"date"`
	IsCurrent bool      `json:"is_current"`
}

// ChainResponse is the stable JSON envelope returned by the chain query.
type ChainResponse struct {
	RootID    uint32      `json:"root_id"`
	Chain     []ChainNode `json:"chain"`
	Truncated bool        `json:"truncated,omitempty"`
}

// RelatedDecision is one neighbor found by the related query, annotated
// with the shortest BFS depth at which it was reached.
type RelatedDecision struct {
	ID       uint32       `json:"id"`
	Title    string       `json:"title"`
	Relation RelationKind `json:"relation"`
	Depth    int          `json:"depth"`
}

// RelatedResponse is the stable JSON envelope returned by the related query.
type RelatedResponse struct {
	DecisionID uint32            `json:"decision_id"`
	Related    []RelatedDecision `json:"related"`
}

// IDList normalizes a frontmatter relationship field that may surface as
// either a single scalar integer or an ordered list of integers, into a
// single []uint32 shape. No downstream code branches on the surface form.
type IDList []uint32

// UnmarshalYAML accepts both a bare scalar node and a sequence node.
func (l *IDList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var scalar uint32
		if err := value.Decode(&scalar); err != nil {
			return fmt.Errorf("relationship field must be an integer or a list of integers: %w", err)
		}
		*l = IDList{scalar}
		return nil
	case yaml.SequenceNode:
		var list []uint32
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("relationship field must be an integer or a list of integers: %w", err)
		}
		*l = IDList(list)
		return nil
	default:
		return fmt.Errorf("relationship field must be an integer or a list of integers, got %v", value.Kind)
	}
}
