// Package iforest implements the Isolation Forest algorithm for anomaly detection.
package iforest

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/orbitguard/pkg/detectors"
)

var log = logrus.WithField("component", "iforest")

// eulerGamma is the Euler-Mascheroni constant used to approximate harmonic numbers.
const eulerGamma = 0.5772156649015329

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	seed          int64
	workers       int

	// Trained model
	trees     []*iTree
	trained   bool
	nFeatures int

	// Statistics from training
	avgPathLength float64
	threshold     float64
}

// iTree represents a single isolation tree.
type iTree struct {
	root *node
}

// node is a node in the isolation tree.
type node struct {
	// Split parameters (for internal nodes)
	splitFeature int
	splitValue   float64

	// Children
	left  *node
	right *node

	// Leaf information
	size int // number of samples that reached this leaf
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies. Fit uses it to
// derive Threshold from the training scores; zero disables the threshold.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.seed = seed
	}
}

// WithWorkers bounds the number of goroutines used to build and score trees.
// The result does not depend on this value.
func WithWorkers(n int) Option {
	return func(f *IsolationForest) {
		f.workers = n
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	f := &IsolationForest{
		nTrees:     100,
		sampleSize: 256,
		seed:       42,
		workers:    runtime.GOMAXPROCS(0),
		threshold:  math.Inf(1),
	}

	for _, opt := range opts {
		opt(f)
	}
	if f.nTrees < 1 {
		f.nTrees = 1
	}
	if f.workers < 1 {
		f.workers = 1
	}

	return f
}

// Fit trains the Isolation Forest on the provided data.
func (f *IsolationForest) Fit(data [][]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(data) == 0 {
		return detectors.ErrEmptyData
	}

	nSamples := len(data)
	nFeatures := len(data[0])
	for _, row := range data {
		if len(row) != nFeatures {
			return detectors.ErrDimensionMismatch
		}
	}

	// Adjust sample size if needed
	sampleSize := f.sampleSize
	if sampleSize > nSamples || sampleSize < 1 {
		sampleSize = nSamples
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	// Every tree gets its own seed drawn up front, so the forest is the same
	// whatever order the trees are built in.
	rng := rand.New(rand.NewSource(f.seed))
	seeds := make([]int64, f.nTrees)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	trees := make([]*iTree, f.nTrees)
	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			b := &treeBuilder{
				rng:       rand.New(rand.NewSource(seeds[i])),
				maxDepth:  maxDepth,
				nFeatures: nFeatures,
			}
			// Sample without replacement
			indices := b.rng.Perm(nSamples)[:sampleSize]
			sample := make([][]float64, sampleSize)
			for j, idx := range indices {
				sample[j] = data[idx]
			}
			trees[i] = &iTree{root: b.buildNode(sample, 0)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.trees = trees
	f.nFeatures = nFeatures
	// Calculate average path length for normalization
	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	log.WithFields(logrus.Fields{
		"trees":      f.nTrees,
		"samples":    nSamples,
		"subsample":  sampleSize,
		"features":   nFeatures,
		"max_depth":  maxDepth,
		"avg_path_c": f.avgPathLength,
	}).Debug("isolation forest fitted")

	// Set threshold based on contamination
	f.threshold = math.Inf(1)
	if f.contamination > 0 {
		scores, err := f.predict(data)
		if err != nil {
			return err
		}
		_, f.threshold = Outliers(scores, f.contamination)
	}

	return nil
}

// treeBuilder grows one isolation tree from its own random source.
type treeBuilder struct {
	rng       *rand.Rand
	maxDepth  int
	nFeatures int
}

func (b *treeBuilder) buildNode(data [][]float64, depth int) *node {
	n := len(data)

	// Terminal conditions
	if depth >= b.maxDepth || n <= 1 {
		return &node{size: n}
	}

	// Only features that still vary inside this node can split it.
	mins := make([]float64, b.nFeatures)
	maxs := make([]float64, b.nFeatures)
	copy(mins, data[0])
	copy(maxs, data[0])
	for _, row := range data[1:] {
		for j, v := range row {
			if v < mins[j] {
				mins[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}
	candidates := make([]int, 0, b.nFeatures)
	for j := 0; j < b.nFeatures; j++ {
		if maxs[j] > mins[j] {
			candidates = append(candidates, j)
		}
	}

	// If all rows are identical, return leaf
	if len(candidates) == 0 {
		return &node{size: n}
	}

	// Random feature and split value
	feature := candidates[b.rng.Intn(len(candidates))]
	minVal, maxVal := mins[feature], maxs[feature]
	splitValue := minVal + b.rng.Float64()*(maxVal-minVal)

	// Partition data
	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         b.buildNode(leftData, depth+1),
		right:        b.buildNode(rightData, depth+1),
	}
}

// Predict returns anomaly scores for the given samples.
func (f *IsolationForest) Predict(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, detectors.ErrNotTrained
	}

	return f.predict(data)
}

func (f *IsolationForest) predict(data [][]float64) ([]float64, error) {
	for _, sample := range data {
		if len(sample) != f.nFeatures {
			return nil, detectors.ErrDimensionMismatch
		}
	}

	scores := make([]float64, len(data))
	chunk := (len(data) + f.workers - 1) / f.workers
	if chunk == 0 {
		return scores, nil
	}

	var g errgroup.Group
	for start := 0; start < len(data); start += chunk {
		start, end := start, min(start+chunk, len(data))
		g.Go(func() error {
			for i := start; i < end; i++ {
				scores[i] = f.predictOne(data[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

// PredictOne returns the anomaly score for a single sample.
func (f *IsolationForest) PredictOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return 0, detectors.ErrNotTrained
	}
	if len(sample) != f.nFeatures {
		return 0, detectors.ErrDimensionMismatch
	}

	return f.predictOne(sample), nil
}

func (f *IsolationForest) predictOne(sample []float64) float64 {
	// Average path length across all trees, summed in tree order
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(sample, tree.root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))

	// A single training sample carries no isolation information.
	if f.avgPathLength == 0 {
		return 0.5
	}

	// Anomaly score: 2^(-avgPath / c(n))
	// Higher score = more anomalous
	return math.Pow(2, -avgPath/f.avgPathLength)
}

// pathLength calculates the path length for a sample in a tree.
func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.isLeaf() {
		// Leaf node: add expected path length for remaining isolation
		return float64(currentDepth) + averagePathLength(float64(n.size))
	}

	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, currentDepth+1)
	}
	return pathLength(sample, n.right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n <= 2:
		return 1
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, where H(i) ~ ln(i) + gamma
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// Threshold returns the score of the weakest outlier selected on the training
// data, or +Inf when contamination is zero or rounds to no rows.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// NumTrees returns the configured number of isolation trees.
func (f *IsolationForest) NumTrees() int {
	return f.nTrees
}

// Outliers ranks scores from most to least anomalous and returns the indices
// of the top round(contamination*len(scores)) rows in ascending index order,
// along with the score of the last one selected. Equal scores rank by index.
// The threshold is +Inf when nothing is selected.
func Outliers(scores []float64, contamination float64) ([]int, float64) {
	k := int(math.Round(contamination * float64(len(scores))))
	if k <= 0 {
		return nil, math.Inf(1)
	}
	if k > len(scores) {
		k = len(scores)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	picked := append([]int(nil), order[:k]...)
	sort.Ints(picked)
	return picked, scores[order[k-1]]
}
