// Copyright 2024 bookworm Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package trainer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/base/search"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/transform"
	"github.com/bookworm-io/bookworm/validation"
)

func buildPivot(t *testing.T, titles int) *transform.PivotMatrix {
	rows := make([]validation.BookRating, 0)
	for i := 0; i < titles; i++ {
		// every title profile points in a distinct direction, so nearest
		// neighbors are unambiguous
		title := string(rune('A' + i))
		rows = append(rows, validation.BookRating{UserID: "u1", Title: title, Rating: 1})
		rows = append(rows, validation.BookRating{UserID: "u2", Title: title, Rating: float32(i + 1)})
	}
	pivot, err := transform.BuildPivot(rows)
	require.NoError(t, err)
	return pivot
}

func TestFit(t *testing.T) {
	pivot := buildPivot(t, 10)
	model, err := Fit(pivot, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, model.Len())

	// each row is its own nearest neighbor
	for i := int32(0); i < pivot.Titles.Len(); i++ {
		values, scores := model.Search(search.NewSparseVectorFromDense(pivot.Row(i)), 6)
		assert.Len(t, values, 6)
		assert.Equal(t, i, values[0])
		assert.InDelta(t, 0, scores[0], 1e-6)
	}
}

func TestFitTooFewRows(t *testing.T) {
	pivot := buildPivot(t, 5)
	_, err := Fit(pivot, 6)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	temp := t.TempDir()
	transformCfg := config.DataTransformationConfig{
		TransformedDataDir: filepath.Join(temp, "transformed_data"),
	}
	valCfg := config.DataValidationConfig{
		SerializedObjectsDir: filepath.Join(temp, "serialized_objects"),
	}
	cfg := config.ModelTrainerConfig{
		TrainedModelDir:  filepath.Join(temp, "trained_model"),
		TrainedModelName: "model.gob",
		NumNeighbors:     6,
	}
	pivot := buildPivot(t, 10)
	require.NoError(t, encoding.SaveObject(filepath.Join(transformCfg.TransformedDataDir, transform.BookPivotFile), pivot))

	mt := NewModelTrainer(cfg, transformCfg, valCfg, zap.NewNop())
	require.NoError(t, mt.Run())

	// the model lands in both the trained model and serialized objects dirs
	for _, dir := range []string{cfg.TrainedModelDir, valCfg.SerializedObjectsDir} {
		var model search.Bruteforce
		require.NoError(t, encoding.LoadObject(filepath.Join(dir, cfg.TrainedModelName), &model))
		assert.Equal(t, 10, model.Len())
	}
}

func TestRunTooFewRows(t *testing.T) {
	temp := t.TempDir()
	transformCfg := config.DataTransformationConfig{
		TransformedDataDir: filepath.Join(temp, "transformed_data"),
	}
	valCfg := config.DataValidationConfig{
		SerializedObjectsDir: filepath.Join(temp, "serialized_objects"),
	}
	cfg := config.ModelTrainerConfig{
		TrainedModelDir:  filepath.Join(temp, "trained_model"),
		TrainedModelName: "model.gob",
		NumNeighbors:     6,
	}
	pivot := buildPivot(t, 3)
	require.NoError(t, encoding.SaveObject(filepath.Join(transformCfg.TransformedDataDir, transform.BookPivotFile), pivot))

	mt := NewModelTrainer(cfg, transformCfg, valCfg, zap.NewNop())
	err := mt.Run()
	var trainingError *base.TrainingError
	assert.ErrorAs(t, err, &trainingError)
}
