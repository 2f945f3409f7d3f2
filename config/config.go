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
	"net/url"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the pipeline. All directory and file
// fields hold paths already joined against the artifacts directory: resolve
// runs once inside LoadConfig, stages never re-derive paths.
type Config struct {
	Artifacts          ArtifactsConfig          `mapstructure:"artifacts_config"`
	DataIngestion      DataIngestionConfig      `mapstructure:"data_ingestion_config"`
	DataValidation     DataValidationConfig     `mapstructure:"data_validation_config"`
	DataTransformation DataTransformationConfig `mapstructure:"data_transformation_config"`
	ModelTrainer       ModelTrainerConfig       `mapstructure:"model_trainer_config"`
	Pretrained         PretrainedConfig         `mapstructure:"pretrained_config"`
}

type ArtifactsConfig struct {
	ArtifactsDir string `mapstructure:"artifacts_dir"`
}

type DataIngestionConfig struct {
	DatasetDownloadURL string `mapstructure:"dataset_download_url"`
	DatasetDir         string `mapstructure:"dataset_dir"`
	RawDataDir         string `mapstructure:"raw_data_dir"`
	IngestedDataDir    string `mapstructure:"ingested_data_dir"`
}

type DataValidationConfig struct {
	BooksCSVFile         string `mapstructure:"books_csv_file"`
	RatingsCSVFile       string `mapstructure:"ratings_csv_file"`
	CleanDataDir         string `mapstructure:"clean_data_dir"`
	SerializedObjectsDir string `mapstructure:"serialized_objects_dir"`
	MinUserRatings       int    `mapstructure:"min_user_ratings"`
	MinBookRatings       int    `mapstructure:"min_book_ratings"`
}

type DataTransformationConfig struct {
	TransformedDataDir string `mapstructure:"transformed_data_dir"`
}

type ModelTrainerConfig struct {
	TrainedModelDir  string `mapstructure:"trained_model_dir"`
	TrainedModelName string `mapstructure:"trained_model_name"`
	NumNeighbors     int    `mapstructure:"num_neighbors"`
}

type PretrainedConfig struct {
	PretrainedDir          string `mapstructure:"pretrained_dir"`
	PretrainedModel        string `mapstructure:"pretrained_model"`
	PretrainedBookNames    string `mapstructure:"pretrained_book_names"`
	PretrainedFinalRatings string `mapstructure:"pretrained_final_ratings"`
	PretrainedBookPivot    string `mapstructure:"pretrained_book_pivot"`
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Artifacts: ArtifactsConfig{
			ArtifactsDir: "artifacts",
		},
		DataIngestion: DataIngestionConfig{
			DatasetDownloadURL: "https://cdn.bookworm.io/datasets/book-crossing.zip",
			DatasetDir:         "dataset",
			RawDataDir:         "raw_data",
			IngestedDataDir:    "ingested_data",
		},
		DataValidation: DataValidationConfig{
			BooksCSVFile:         "BX-Books.csv",
			RatingsCSVFile:       "BX-Book-Ratings.csv",
			CleanDataDir:         "clean_data",
			SerializedObjectsDir: "serialized_objects",
			MinUserRatings:       200,
			MinBookRatings:       50,
		},
		DataTransformation: DataTransformationConfig{
			TransformedDataDir: "transformed_data",
		},
		ModelTrainer: ModelTrainerConfig{
			TrainedModelDir:  "trained_model",
			TrainedModelName: "model.gob",
			NumNeighbors:     6,
		},
		Pretrained: PretrainedConfig{
			PretrainedDir:          "serialized_objects",
			PretrainedModel:        "model.gob",
			PretrainedBookNames:    "book_names.gob",
			PretrainedFinalRatings: "final_ratings.gob",
			PretrainedBookPivot:    "book_pivot.gob",
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	viper.SetDefault("artifacts_config.artifacts_dir", defaultConfig.Artifacts.ArtifactsDir)
	viper.SetDefault("data_ingestion_config.dataset_download_url", defaultConfig.DataIngestion.DatasetDownloadURL)
	viper.SetDefault("data_ingestion_config.dataset_dir", defaultConfig.DataIngestion.DatasetDir)
	viper.SetDefault("data_ingestion_config.raw_data_dir", defaultConfig.DataIngestion.RawDataDir)
	viper.SetDefault("data_ingestion_config.ingested_data_dir", defaultConfig.DataIngestion.IngestedDataDir)
	viper.SetDefault("data_validation_config.books_csv_file", defaultConfig.DataValidation.BooksCSVFile)
	viper.SetDefault("data_validation_config.ratings_csv_file", defaultConfig.DataValidation.RatingsCSVFile)
	viper.SetDefault("data_validation_config.clean_data_dir", defaultConfig.DataValidation.CleanDataDir)
	viper.SetDefault("data_validation_config.serialized_objects_dir", defaultConfig.DataValidation.SerializedObjectsDir)
	viper.SetDefault("data_validation_config.min_user_ratings", defaultConfig.DataValidation.MinUserRatings)
	viper.SetDefault("data_validation_config.min_book_ratings", defaultConfig.DataValidation.MinBookRatings)
	viper.SetDefault("data_transformation_config.transformed_data_dir", defaultConfig.DataTransformation.TransformedDataDir)
	viper.SetDefault("model_trainer_config.trained_model_dir", defaultConfig.ModelTrainer.TrainedModelDir)
	viper.SetDefault("model_trainer_config.trained_model_name", defaultConfig.ModelTrainer.TrainedModelName)
	viper.SetDefault("model_trainer_config.num_neighbors", defaultConfig.ModelTrainer.NumNeighbors)
	viper.SetDefault("pretrained_config.pretrained_dir", defaultConfig.Pretrained.PretrainedDir)
	viper.SetDefault("pretrained_config.pretrained_model", defaultConfig.Pretrained.PretrainedModel)
	viper.SetDefault("pretrained_config.pretrained_book_names", defaultConfig.Pretrained.PretrainedBookNames)
	viper.SetDefault("pretrained_config.pretrained_final_ratings", defaultConfig.Pretrained.PretrainedFinalRatings)
	viper.SetDefault("pretrained_config.pretrained_book_pivot", defaultConfig.Pretrained.PretrainedBookPivot)
}

// Resolve joins every stage path against the artifacts directory. LoadConfig
// calls it once; callers building a Config by hand must call it themselves
// before handing the config to a stage.
func (config *Config) Resolve() {
	artifacts := config.Artifacts.ArtifactsDir
	datasetDir := filepath.Join(artifacts, config.DataIngestion.DatasetDir)
	config.DataIngestion.RawDataDir = filepath.Join(datasetDir, config.DataIngestion.RawDataDir)
	config.DataIngestion.IngestedDataDir = filepath.Join(datasetDir, config.DataIngestion.IngestedDataDir)
	config.DataValidation.BooksCSVFile = filepath.Join(config.DataIngestion.IngestedDataDir, config.DataValidation.BooksCSVFile)
	config.DataValidation.RatingsCSVFile = filepath.Join(config.DataIngestion.IngestedDataDir, config.DataValidation.RatingsCSVFile)
	config.DataValidation.CleanDataDir = filepath.Join(artifacts, config.DataValidation.CleanDataDir)
	config.DataValidation.SerializedObjectsDir = filepath.Join(artifacts, config.DataValidation.SerializedObjectsDir)
	config.DataTransformation.TransformedDataDir = filepath.Join(artifacts, config.DataTransformation.TransformedDataDir)
	config.ModelTrainer.TrainedModelDir = filepath.Join(artifacts, config.ModelTrainer.TrainedModelDir)
	config.Pretrained.PretrainedDir = filepath.Join(artifacts, config.Pretrained.PretrainedDir)
	config.Pretrained.PretrainedModel = filepath.Join(config.Pretrained.PretrainedDir, config.Pretrained.PretrainedModel)
	config.Pretrained.PretrainedBookNames = filepath.Join(config.Pretrained.PretrainedDir, config.Pretrained.PretrainedBookNames)
	config.Pretrained.PretrainedFinalRatings = filepath.Join(config.Pretrained.PretrainedDir, config.Pretrained.PretrainedFinalRatings)
	config.Pretrained.PretrainedBookPivot = filepath.Join(config.Pretrained.PretrainedDir, config.Pretrained.PretrainedBookPivot)
}

// Validate panics if the configuration is unusable.
func (config *Config) Validate() {
	validateNotEmptyString("artifacts_config.artifacts_dir", config.Artifacts.ArtifactsDir)
	validateNotEmptyString("data_ingestion_config.dataset_download_url", config.DataIngestion.DatasetDownloadURL)
	if downloadURL, err := url.Parse(config.DataIngestion.DatasetDownloadURL); err == nil {
		validateIn("data_ingestion_config.dataset_download_url", downloadURL.Scheme, []string{"http", "https"})
	}
	validatePositive("data_validation_config.min_user_ratings", config.DataValidation.MinUserRatings)
	validatePositive("data_validation_config.min_book_ratings", config.DataValidation.MinBookRatings)
	validatePositive("model_trainer_config.num_neighbors", config.ModelTrainer.NumNeighbors)
	validateSuffix("model_trainer_config.trained_model_name", config.ModelTrainer.TrainedModelName, ".gob")
}

// LoadConfig loads and resolves configuration from a TOML file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	conf.Validate()
	conf.Resolve()
	return &conf, nil
}

// LoadDefaultConfig returns the resolved default configuration for runs
// without a config file.
func LoadDefaultConfig() *Config {
	conf := GetDefaultConfig()
	conf.Validate()
	conf.Resolve()
	return conf
}
