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

// Package trainer fits the nearest-neighbor index over the pivot matrix rows.
package trainer

import (
	"path/filepath"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/base/search"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/transform"
)

// ModelTrainer converts the pivot matrix to sparse vectors and fits a
// brute-force cosine-distance index.
type ModelTrainer struct {
	cfg          config.ModelTrainerConfig
	transformCfg config.DataTransformationConfig
	valCfg       config.DataValidationConfig
	logger       *zap.Logger
}

// NewModelTrainer creates a ModelTrainer stage.
func NewModelTrainer(cfg config.ModelTrainerConfig, transformCfg config.DataTransformationConfig,
	valCfg config.DataValidationConfig, logger *zap.Logger) *ModelTrainer {
	return &ModelTrainer{cfg: cfg, transformCfg: transformCfg, valCfg: valCfg, logger: logger}
}

// Run loads the pivot matrix, fits the index and persists it. The model is
// written into the trained model directory and copied into the serialized
// objects directory for query-time loading.
func (mt *ModelTrainer) Run() error {
	pivotPath := filepath.Join(mt.transformCfg.TransformedDataDir, transform.BookPivotFile)
	var pivot transform.PivotMatrix
	if err := encoding.LoadObject(pivotPath, &pivot); err != nil {
		mt.logger.Error("failed to load pivot matrix", zap.String("path", pivotPath), zap.Error(err))
		return base.NewTrainingError(errors.Trace(err))
	}
	model, err := Fit(&pivot, mt.cfg.NumNeighbors)
	if err != nil {
		mt.logger.Error("model fit failed", zap.Error(err))
		return base.NewTrainingError(err)
	}
	mt.logger.Info("fitted nearest-neighbor index",
		zap.Int("vectors", model.Len()), zap.Int("num_neighbors", mt.cfg.NumNeighbors))

	for _, dir := range []string{mt.cfg.TrainedModelDir, mt.valCfg.SerializedObjectsDir} {
		path := filepath.Join(dir, mt.cfg.TrainedModelName)
		if err := encoding.SaveObject(path, model); err != nil {
			return base.NewTrainingError(errors.Trace(err))
		}
		mt.logger.Info("wrote model", zap.String("path", path))
	}
	return nil
}

// Fit converts pivot rows to sparse vectors and builds the brute-force
// index. The matrix must have at least numNeighbors rows, otherwise queries
// could never be satisfied.
func Fit(pivot *transform.PivotMatrix, numNeighbors int) (*search.Bruteforce, error) {
	if int(pivot.Titles.Len()) < numNeighbors {
		return nil, errors.Errorf("pivot matrix has %d rows, need at least %d to answer %d-neighbor queries",
			pivot.Titles.Len(), numNeighbors, numNeighbors)
	}
	vectors := make([]*search.SparseVector, pivot.Titles.Len())
	for i := range vectors {
		vectors[i] = search.NewSparseVectorFromDense(pivot.Row(int32(i)))
	}
	return search.NewBruteforce(vectors), nil
}
