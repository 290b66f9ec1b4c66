package gbdt

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/hgboost/core/model"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

const (
	// ModelFormat identifies JSON model files.
	ModelFormat = "hgboost"
	// ModelVersion is the JSON model format version written by WriteJSON.
	ModelVersion = 1

	ensembleKind = "ensemble"
)

type jsonTree struct {
	Shrinkage float64 `json:"shrinkage"`
	Nodes     []Node  `json:"nodes"`
}

type jsonModel struct {
	Format        string     `json:"format"`
	Version       int        `json:"version"`
	Objective     string     `json:"objective"`
	NumOutputs    int        `json:"num_outputs"`
	NumFeatures   int        `json:"num_features"`
	BaseScore     []float64  `json:"base_score"`
	Link          string     `json:"link"`
	BestIteration int        `json:"best_iteration"`
	Trees         []jsonTree `json:"trees"`
}

// WriteJSON writes the ensemble as a self-describing JSON document. Floats are
// written in their shortest round-trip form so ReadJSON restores them exactly.
func (e *Ensemble) WriteJSON(w io.Writer) error {
	doc := jsonModel{
		Format:        ModelFormat,
		Version:       ModelVersion,
		Objective:     e.Objective,
		NumOutputs:    e.NumOutputs,
		NumFeatures:   e.NumFeatures,
		BaseScore:     e.BaseScore,
		Link:          e.Link.String(),
		BestIteration: e.BestIteration,
		Trees:         make([]jsonTree, len(e.Trees)),
	}
	for i, t := range e.Trees {
		doc.Trees[i] = jsonTree{Shrinkage: e.Shrinkage[i], Nodes: t.Nodes}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(&doc); err != nil {
		return errors.NewModelError("WriteJSON", "failed to encode model", err)
	}
	return nil
}

// ReadJSON reads an ensemble written by WriteJSON.
func ReadJSON(r io.Reader) (*Ensemble, error) {
	var doc jsonModel
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.NewModelError("ReadJSON", "failed to decode model", err)
	}
	if doc.Format != ModelFormat {
		return nil, errors.NewModelError("ReadJSON", "unknown format", errors.Newf("format %q", doc.Format))
	}
	if doc.Version != ModelVersion {
		return nil, errors.NewModelError("ReadJSON", "unsupported format version", errors.Newf("version %d", doc.Version))
	}
	link, err := ParseLink(doc.Link)
	if err != nil {
		return nil, errors.NewModelError("ReadJSON", "invalid link", err)
	}

	e := &Ensemble{
		Objective:     doc.Objective,
		NumOutputs:    doc.NumOutputs,
		NumFeatures:   doc.NumFeatures,
		BaseScore:     doc.BaseScore,
		Link:          link,
		BestIteration: doc.BestIteration,
		Trees:         make([]*Tree, len(doc.Trees)),
		Shrinkage:     make([]float64, len(doc.Trees)),
	}
	for i, t := range doc.Trees {
		e.Trees[i] = &Tree{Nodes: t.Nodes}
		e.Shrinkage[i] = t.Shrinkage
	}
	if err := e.validate(); err != nil {
		return nil, errors.NewModelError("ReadJSON", "invalid model", err)
	}
	return e, nil
}

// validate checks the structural invariants a loaded ensemble must satisfy
// before it can be evaluated.
func (e *Ensemble) validate() error {
	if e.NumOutputs < 1 {
		return errors.Newf("num_outputs %d", e.NumOutputs)
	}
	if len(e.BaseScore) != e.NumOutputs {
		return errors.Newf("%d base scores for %d outputs", len(e.BaseScore), e.NumOutputs)
	}
	if len(e.Shrinkage) != len(e.Trees) {
		return errors.Newf("%d shrinkage values for %d trees", len(e.Shrinkage), len(e.Trees))
	}
	for i, t := range e.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return errors.Newf("tree %d is empty", i)
		}
		for id, n := range t.Nodes {
			if n.IsLeaf() {
				continue
			}
			if n.Left <= id || n.Right <= id || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return errors.Newf("tree %d node %d has invalid children %d, %d", i, id, n.Left, n.Right)
			}
			if n.Feature < 0 || n.Feature >= e.NumFeatures {
				return errors.Newf("tree %d node %d splits on feature %d of %d", i, id, n.Feature, e.NumFeatures)
			}
		}
	}
	return nil
}

// SaveModel writes the ensemble to path. A ".json" extension selects JSON;
// anything else is written as gob.
func (e *Ensemble) SaveModel(path string) (err error) {
	if !isJSONPath(path) {
		return model.SaveModel(e, ensembleKind, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewModelError("SaveModel", "failed to create file", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewModelError("SaveModel", "failed to close file", cerr)
		}
	}()
	return e.WriteJSON(f)
}

// LoadModel reads an ensemble saved by SaveModel.
func LoadModel(path string) (*Ensemble, error) {
	if !isJSONPath(path) {
		e := &Ensemble{}
		if err := model.LoadModel(e, ensembleKind, path); err != nil {
			return nil, err
		}
		if err := e.validate(); err != nil {
			return nil, errors.NewModelError("LoadModel", "invalid model", err)
		}
		return e, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewModelError("LoadModel", "failed to open file", err)
	}
	defer f.Close()
	return ReadJSON(f)
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
