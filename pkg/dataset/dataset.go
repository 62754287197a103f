// Package dataset holds training samples as (URI, sample-vector) pairs
// and partitions them into cross-validation folds.
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/go-pdm/statismo/pkg/representer"
	"github.com/go-pdm/statismo/pkg/statismoerr"
)

// DataItem is a single training sample: the object's origin (a file
// path or other identifier) and its flattened sample vector.
type DataItem struct {
	URI    string
	Vector []float64
}

// Fold is one cross-validation partition: disjoint training and testing
// subsets of a DataManager's items.
type Fold struct {
	Training []DataItem
	Testing  []DataItem
}

// DataManager owns a representer and the list of DataItems lifted
// through it. All items share the representer and vector length.
type DataManager struct {
	representer representer.Representer
	items       []DataItem
	vectorLen   int
}

// NewDataManager creates an empty DataManager bound to rep.
func NewDataManager(rep representer.Representer) *DataManager {
	return &DataManager{
		representer: rep,
		vectorLen:   rep.Dimensions() * rep.NumberOfPoints(),
	}
}

// AddDataset lifts object through the DataManager's representer and
// stores the resulting DataItem under uri.
func (dm *DataManager) AddDataset(object interface{}, uri string) error {
	vec, err := dm.representer.SampleToVector(object)
	if err != nil {
		return err
	}
	if len(vec) != dm.vectorLen {
		return statismoerr.NewDimensionMismatch("dataset vector length mismatch", dm.vectorLen, len(vec))
	}
	dm.items = append(dm.items, DataItem{URI: uri, Vector: vec})
	return nil
}

// GetData returns the stored DataItems. The returned slice is owned by
// the caller.
func (dm *DataManager) GetData() []DataItem {
	out := make([]DataItem, len(dm.items))
	copy(out, dm.items)
	return out
}

// Representer returns the DataManager's shared representer.
func (dm *DataManager) Representer() representer.Representer {
	return dm.representer
}

// GetCrossValidationFolds partitions the dataset into nFolds disjoint
// testing subsets (round-robin remainder distribution to the first
// folds) with the complementary training subsets, optionally shuffling
// item order first. A randomize of false, or a randomize of true with
// seed 0, both produce deterministic output: seed 0 derives a seed from
// the item count so callers need not supply one to get reproducible
// folds.
func (dm *DataManager) GetCrossValidationFolds(nFolds int, randomize bool, seed int64) ([]Fold, error) {
	n := len(dm.items)
	if nFolds <= 0 {
		return nil, statismoerr.NewBadInput(fmt.Sprintf("number of folds must be positive, got %d", nFolds))
	}
	if nFolds > n {
		return nil, statismoerr.NewBadInput(fmt.Sprintf("cannot build %d folds from %d items", nFolds, n))
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if randomize {
		if seed == 0 {
			seed = int64(n)
		}
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	// Round-robin remainder distribution: fold i gets the items whose
	// position in `order`, taken mod nFolds, equals i. This guarantees
	// the union of testing partitions equals the full set exactly once,
	// with any remainder spread across the first folds.
	testIdx := make([][]int, nFolds)
	for pos, itemIdx := range order {
		f := pos % nFolds
		testIdx[f] = append(testIdx[f], itemIdx)
	}

	folds := make([]Fold, nFolds)
	for f := 0; f < nFolds; f++ {
		inTest := make(map[int]bool, len(testIdx[f]))
		for _, idx := range testIdx[f] {
			inTest[idx] = true
		}
		testing := make([]DataItem, len(testIdx[f]))
		for i, idx := range testIdx[f] {
			testing[i] = dm.items[idx]
		}
		training := make([]DataItem, 0, n-len(testIdx[f]))
		for idx, item := range dm.items {
			if !inTest[idx] {
				training = append(training, item)
			}
		}
		folds[f] = Fold{Training: training, Testing: testing}
	}
	return folds, nil
}

// GetLeaveOneOutCrossValidationFolds builds n folds of size one, one
// per item, in original item order.
func (dm *DataManager) GetLeaveOneOutCrossValidationFolds() ([]Fold, error) {
	return dm.GetCrossValidationFolds(len(dm.items), false, 0)
}
