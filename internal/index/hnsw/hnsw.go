// Package hnsw implements an in-process approximate-nearest-neighbor index
// as a hierarchical navigable small-world graph. Nodes are addressed by
// dense uint32 ids, layers above 0 are navigated by one-hop greedy descent,
// and layer 0 is searched with a bounded beam.
package hnsw

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
)

// Metric selects the distance function used by the index.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// maxLevelCap bounds the layer assignment so a pathological random draw
// cannot allocate an unbounded neighbor table.
const maxLevelCap = 32

// Config holds the construction parameters of the graph.
type Config struct {
	M              int    // max neighbors per node per layer
	EFConstruction int    // beam width during insertion
	EFSearch       int    // beam width during query
	MaxElements    int    // capacity hint
	Dimension      int    // vector dimension, fixed per index
	Metric         Metric // cosine or l2
}

// Match is a single nearest-neighbor hit, distance ascending in results.
type Match struct {
	Ref      domain.DocRef
	Distance float64
}

type graphNode struct {
	ref    domain.DocRef
	vector []float32
	layer  int
	// neighbors[l] holds the ids linked at layer l, 0 <= l <= layer,
	// never more than M entries.
	neighbors [][]uint32
}

// Index is the ANN index. Reads proceed concurrently; insertion takes the
// exclusive lock. Nodes are never removed.
type Index struct {
	mu        sync.RWMutex
	cfg       Config
	levelMult float64
	dist      func(a, b []float32) float64
	nodes     []*graphNode
	entry     uint32
	maxLayer  int
	rng       *rand.Rand
}

// New creates an empty index for the given configuration.
func New(cfg Config) (*Index, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("hnsw: dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.M <= 0 {
		return nil, fmt.Errorf("hnsw: M must be positive, got %d", cfg.M)
	}
	if cfg.EFConstruction < cfg.M {
		cfg.EFConstruction = cfg.M
	}
	if cfg.EFSearch <= 0 {
		cfg.EFSearch = cfg.M
	}

	var dist func(a, b []float32) float64
	switch cfg.Metric {
	case MetricCosine, "":
		dist = cosineDistance
	case MetricL2:
		dist = l2Distance
	default:
		return nil, fmt.Errorf("hnsw: unknown metric %q", cfg.Metric)
	}

	capHint := cfg.MaxElements
	if capHint < 0 {
		capHint = 0
	}

	return &Index{
		cfg:       cfg,
		levelMult: 1 / math.Log(float64(cfg.M)),
		dist:      dist,
		nodes:     make([]*graphNode, 0, capHint),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Len reports the number of indexed vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.nodes)
}

// Dimension reports the fixed vector dimension of this index.
func (i *Index) Dimension() int { return i.cfg.Dimension }

// Insert adds a vector to the graph. The vector is copied; the caller may
// reuse the slice. Vectors of mismatched dimension are rejected.
func (i *Index) Insert(ref domain.DocRef, vector []float32) error {
	if len(vector) != i.cfg.Dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(vector), i.cfg.Dimension)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	i.mu.Lock()
	defer i.mu.Unlock()

	level := i.randomLevel()
	node := &graphNode{
		ref:       ref,
		vector:    vec,
		layer:     level,
		neighbors: make([][]uint32, level+1),
	}
	id := uint32(len(i.nodes))
	i.nodes = append(i.nodes, node)

	if len(i.nodes) == 1 {
		i.entry = id
		i.maxLayer = level
		return nil
	}

	// Greedy descent through the layers above the target level to find an
	// entry into level.
	ep := i.entry
	for l := i.maxLayer; l > level; l-- {
		next, err := i.greedyClosest(vec, ep, l)
		if err != nil {
			return err
		}
		ep = next
	}

	top := level
	if top > i.maxLayer {
		top = i.maxLayer
	}
	for l := top; l >= 0; l-- {
		candidates, err := i.searchLayer(vec, ep, i.cfg.EFConstruction, l)
		if err != nil {
			return err
		}

		selected := i.selectNeighbors(candidates, i.cfg.M)
		node.neighbors[l] = selected

		for _, nb := range selected {
			i.nodes[nb].neighbors[l] = append(i.nodes[nb].neighbors[l], id)
			i.pruneNeighbors(nb, l)
		}

		if len(candidates) > 0 {
			ep = candidates[0].id
		}
	}

	if level > i.maxLayer {
		i.maxLayer = level
		i.entry = id
	}
	return nil
}

// Search returns the top-k nearest neighbors of the query vector, closest
// first. An empty index yields an empty result, not an error.
func (i *Index) Search(query []float32, topK int) ([]Match, error) {
	if len(query) != i.cfg.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrVectorDimMismatch, len(query), i.cfg.Dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.nodes) == 0 {
		return nil, nil
	}

	ep := i.entry
	for l := i.maxLayer; l >= 1; l-- {
		next, err := i.greedyClosest(query, ep, l)
		if err != nil {
			return nil, err
		}
		ep = next
	}

	ef := i.cfg.EFSearch
	if topK > ef {
		ef = topK
	}
	candidates, err := i.searchLayer(query, ep, ef, 0)
	if err != nil {
		return nil, err
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	matches := make([]Match, len(candidates))
	for n, c := range candidates {
		matches[n] = Match{Ref: i.nodes[c.id].ref, Distance: c.dist}
	}
	return matches, nil
}

// Save serializes the graph to w. Not implemented: the index is rebuilt
// from the case store on startup.
func (i *Index) Save(io.Writer) error { return domain.ErrNotSupported }

// Load restores a graph from r. Not implemented; see Save.
func (i *Index) Load(io.Reader) error { return domain.ErrNotSupported }

// randomLevel draws a layer from a truncated exponential distribution with
// scale 1/ln(M), so higher layers are exponentially rarer.
func (i *Index) randomLevel() int {
	r := i.rng.Float64()
	for r == 0 {
		r = i.rng.Float64()
	}
	level := int(-math.Log(r) * i.levelMult)
	if level > maxLevelCap {
		level = maxLevelCap
	}
	return level
}

// greedyClosest moves one hop at a time toward the query at the given
// layer, stopping at a local minimum.
func (i *Index) greedyClosest(query []float32, ep uint32, layer int) (uint32, error) {
	cur := ep
	curDist := i.dist(query, i.nodes[cur].vector)

	for {
		improved := false
		for _, nb := range i.neighborsAt(cur, layer) {
			if int(nb) >= len(i.nodes) {
				return 0, fmt.Errorf("%w: dangling neighbor %d at layer %d", domain.ErrIndexCorrupted, nb, layer)
			}
			if d := i.dist(query, i.nodes[nb].vector); d < curDist {
				cur, curDist, improved = nb, d, true
			}
		}
		if !improved {
			return cur, nil
		}
	}
}

// searchLayer runs a bounded beam search at one layer and returns up to ef
// candidates sorted by distance, ascending.
func (i *Index) searchLayer(query []float32, ep uint32, ef, layer int) ([]candidate, error) {
	epDist := i.dist(query, i.nodes[ep].vector)

	visited := map[uint32]struct{}{ep: {}}
	frontier := newMinQueue()
	frontier.push(candidate{id: ep, dist: epDist})
	results := newMaxQueue()
	results.push(candidate{id: ep, dist: epDist})

	for frontier.len() > 0 {
		cur := frontier.pop()
		if results.len() >= ef && cur.dist > results.peek().dist {
			break
		}

		for _, nb := range i.neighborsAt(cur.id, layer) {
			if int(nb) >= len(i.nodes) {
				return nil, fmt.Errorf("%w: dangling neighbor %d at layer %d", domain.ErrIndexCorrupted, nb, layer)
			}
			if _, seen := visited[nb]; seen {
				continue
			}
			visited[nb] = struct{}{}

			d := i.dist(query, i.nodes[nb].vector)
			if results.len() < ef || d < results.peek().dist {
				frontier.push(candidate{id: nb, dist: d})
				results.push(candidate{id: nb, dist: d})
				if results.len() > ef {
					results.pop()
				}
			}
		}
	}

	out := results.drain()
	sort.Slice(out, func(a, b int) bool { return out[a].dist < out[b].dist })
	return out, nil
}

// selectNeighbors keeps up to m diverse candidates: a candidate closer to
// an already-selected neighbor than to the query point is rejected.
func (i *Index) selectNeighbors(candidates []candidate, m int) []uint32 {
	selected := make([]uint32, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		keep := true
		for _, s := range selected {
			if i.dist(i.nodes[c.id].vector, i.nodes[s].vector) < c.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, c.id)
		}
	}
	return selected
}

// pruneNeighbors re-applies the diversity heuristic to a node whose
// neighbor list grew past M after a reverse link was added.
func (i *Index) pruneNeighbors(id uint32, layer int) {
	node := i.nodes[id]
	if len(node.neighbors[layer]) <= i.cfg.M {
		return
	}

	cands := make([]candidate, 0, len(node.neighbors[layer]))
	for _, nb := range node.neighbors[layer] {
		cands = append(cands, candidate{id: nb, dist: i.dist(node.vector, i.nodes[nb].vector)})
	}
	sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

	node.neighbors[layer] = i.selectNeighbors(cands, i.cfg.M)
}

func (i *Index) neighborsAt(id uint32, layer int) []uint32 {
	node := i.nodes[id]
	if layer >= len(node.neighbors) {
		return nil
	}
	return node.neighbors[layer]
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
