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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigTemplate(t *testing.T) {
	config, err := LoadConfig("../config.toml.template")
	require.NoError(t, err)

	// [artifacts_config]
	assert.Equal(t, "artifacts", config.Artifacts.ArtifactsDir)
	// [data_ingestion_config]
	assert.Equal(t, "https://cdn.bookworm.io/datasets/book-crossing.zip", config.DataIngestion.DatasetDownloadURL)
	assert.Equal(t, filepath.Join("artifacts", "dataset", "raw_data"), config.DataIngestion.RawDataDir)
	assert.Equal(t, filepath.Join("artifacts", "dataset", "ingested_data"), config.DataIngestion.IngestedDataDir)
	// [data_validation_config]
	assert.Equal(t, filepath.Join("artifacts", "dataset", "ingested_data", "BX-Books.csv"), config.DataValidation.BooksCSVFile)
	assert.Equal(t, filepath.Join("artifacts", "dataset", "ingested_data", "BX-Book-Ratings.csv"), config.DataValidation.RatingsCSVFile)
	assert.Equal(t, filepath.Join("artifacts", "clean_data"), config.DataValidation.CleanDataDir)
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects"), config.DataValidation.SerializedObjectsDir)
	assert.Equal(t, 200, config.DataValidation.MinUserRatings)
	assert.Equal(t, 50, config.DataValidation.MinBookRatings)
	// [data_transformation_config]
	assert.Equal(t, filepath.Join("artifacts", "transformed_data"), config.DataTransformation.TransformedDataDir)
	// [model_trainer_config]
	assert.Equal(t, filepath.Join("artifacts", "trained_model"), config.ModelTrainer.TrainedModelDir)
	assert.Equal(t, "model.gob", config.ModelTrainer.TrainedModelName)
	assert.Equal(t, 6, config.ModelTrainer.NumNeighbors)
	// [pretrained_config]
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects"), config.Pretrained.PretrainedDir)
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects", "model.gob"), config.Pretrained.PretrainedModel)
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects", "book_names.gob"), config.Pretrained.PretrainedBookNames)
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects", "final_ratings.gob"), config.Pretrained.PretrainedFinalRatings)
	assert.Equal(t, filepath.Join("artifacts", "serialized_objects", "book_pivot.gob"), config.Pretrained.PretrainedBookPivot)
}

func TestLoadConfigOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	text := `
[artifacts_config]
artifacts_dir = "out"

[data_validation_config]
min_user_ratings = 10
min_book_ratings = 5

[model_trainer_config]
num_neighbors = 3
`
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "out", config.Artifacts.ArtifactsDir)
	assert.Equal(t, 10, config.DataValidation.MinUserRatings)
	assert.Equal(t, 5, config.DataValidation.MinBookRatings)
	assert.Equal(t, 3, config.ModelTrainer.NumNeighbors)
	// unset keys fall back to defaults, joined against the overridden
	// artifacts directory
	assert.Equal(t, filepath.Join("out", "clean_data"), config.DataValidation.CleanDataDir)
	assert.Equal(t, filepath.Join("out", "trained_model"), config.ModelTrainer.TrainedModelDir)
}

func TestValidate(t *testing.T) {
	config := GetDefaultConfig()
	config.ModelTrainer.NumNeighbors = 0
	assert.Panics(t, func() { config.Validate() })

	config = GetDefaultConfig()
	config.DataIngestion.DatasetDownloadURL = " "
	assert.Panics(t, func() { config.Validate() })

	config = GetDefaultConfig()
	config.ModelTrainer.TrainedModelName = "model.bin"
	assert.Panics(t, func() { config.Validate() })

	config = GetDefaultConfig()
	config.DataIngestion.DatasetDownloadURL = "ftp://cdn.bookworm.io/dataset.zip"
	assert.Panics(t, func() { config.Validate() })
}

func TestLoadDefaultConfig(t *testing.T) {
	config := LoadDefaultConfig()
	assert.Equal(t, filepath.Join("artifacts", "dataset", "raw_data"), config.DataIngestion.RawDataDir)
	assert.Equal(t, 6, config.ModelTrainer.NumNeighbors)
}
