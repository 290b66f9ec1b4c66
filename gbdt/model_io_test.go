package gbdt

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

func trainedMulticlass(t *testing.T) (*Ensemble, *Matrix) {
	t.Helper()
	x, y := synthetic(t, 400, 3, 81, 0.1, func(row []float64) float64 {
		if row[0]+row[1] > 0.3 {
			return 2
		}
		if row[2] > 0 {
			return 1
		}
		return 0
	})
	m := mustMatrix(t, x, y, nil)
	params := quietParams()
	params.Objective = ObjectiveSoftprob
	params.NumClass = 3
	params.NumBoostRound = 5
	params.LearningRate = 0.37
	e, err := Train(context.Background(), params, m)
	require.NoError(t, err)
	return e, m
}

func assertBitIdentical(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.Float64bits(want[i]) != math.Float64bits(got[i]) {
			t.Fatalf("prediction %d differs: %v != %v", i, want[i], got[i])
		}
	}
}

func TestJSONRoundTripBitIdentical(t *testing.T) {
	e, m := trainedMulticlass(t)
	e.BestIteration = 3

	var buf bytes.Buffer
	require.NoError(t, e.WriteJSON(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n \"format\": \"hgboost\",\n \"version\": 1,"))

	loaded, err := ReadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, e.Objective, loaded.Objective)
	assert.Equal(t, e.Link, loaded.Link)
	assert.Equal(t, 3, loaded.BestIteration)
	assertBitIdentical(t, e.PredictRaw(m), loaded.PredictRaw(m))
}

func TestSaveLoadModelByExtension(t *testing.T) {
	e, m := trainedMulticlass(t)
	want := e.PredictRaw(m)
	dir := t.TempDir()

	for _, name := range []string{"model.json", "model.JSON", "model.gob", "model.bin"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, e.SaveModel(path))
			loaded, err := LoadModel(path)
			require.NoError(t, err)
			assertBitIdentical(t, want, loaded.PredictRaw(m))
			assert.Equal(t, e.NumOutputs, loaded.NumOutputs)
		})
	}
}

func TestReadJSONRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown version", `{"format":"hgboost","version":7,"objective":"reg:squarederror","num_outputs":1,"num_features":1,"base_score":[0],"link":"identity","best_iteration":-1,"trees":[]}`},
		{"wrong format", `{"format":"xgboost","version":1}`},
		{"unknown field", `{"format":"hgboost","version":1,"extra":true}`},
		{"bad child index", `{"format":"hgboost","version":1,"objective":"reg:squarederror","num_outputs":1,"num_features":1,"base_score":[0],"link":"identity","best_iteration":-1,
			"trees":[{"shrinkage":0.3,"nodes":[{"feature":0,"threshold":1,"default_left":true,"left":0,"right":5,"weight":0,"gain":1,"cover":1,"count":1,"depth":0}]}]}`},
		{"base score count", `{"format":"hgboost","version":1,"objective":"multi:softprob","num_outputs":3,"num_features":1,"base_score":[0],"link":"softmax","best_iteration":-1,"trees":[]}`},
		{"not json", `tree`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.doc))
			require.Error(t, err)
			var modelErr *errors.ModelError
			assert.True(t, errors.As(err, &modelErr), "got %v", err)
		})
	}
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	var modelErr *errors.ModelError
	assert.True(t, errors.As(err, &modelErr))
}
