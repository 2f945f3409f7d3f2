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

// Package pipeline drives the training stages in order. Stages hand off
// through persisted artifacts, so each stage runs to completion before the
// next one opens its inputs. A failing stage aborts the run.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/ingestion"
	"github.com/bookworm-io/bookworm/trainer"
	"github.com/bookworm-io/bookworm/transform"
	"github.com/bookworm-io/bookworm/validation"
)

// TrainingPipeline runs ingestion, validation, transformation and model
// training sequentially.
type TrainingPipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrainingPipeline creates a TrainingPipeline.
func NewTrainingPipeline(cfg *config.Config, logger *zap.Logger) *TrainingPipeline {
	return &TrainingPipeline{cfg: cfg, logger: logger}
}

// Run executes the full pipeline. The first stage error is returned as-is
// and carries its stage name.
func (p *TrainingPipeline) Run(ctx context.Context) error {
	p.logger.Info("==================== data ingestion started ====================")
	di := ingestion.NewDataIngestion(p.cfg.DataIngestion, p.logger)
	extracted, err := di.Run(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("==================== data ingestion completed ====================",
		zap.String("extracted", extracted))

	p.logger.Info("==================== data validation started ====================")
	dv := validation.NewDataValidation(p.cfg.DataValidation, p.logger)
	if err := dv.Run(); err != nil {
		return err
	}
	p.logger.Info("==================== data validation completed ====================")

	p.logger.Info("==================== data transformation started ====================")
	dt := transform.NewDataTransformation(p.cfg.DataTransformation, p.cfg.DataValidation, p.logger)
	if err := dt.Run(); err != nil {
		return err
	}
	p.logger.Info("==================== data transformation completed ====================")

	p.logger.Info("==================== model training started ====================")
	mt := trainer.NewModelTrainer(p.cfg.ModelTrainer, p.cfg.DataTransformation, p.cfg.DataValidation, p.logger)
	if err := mt.Run(); err != nil {
		return err
	}
	p.logger.Info("==================== model training completed ====================")
	return nil
}
