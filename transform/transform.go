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

// Package transform pivots the cleaned table into a title-by-user rating
// matrix. The sorted title order of the pivot is the index space every
// downstream reader uses to map neighbor results back to titles.
package transform

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/validation"
)

// BookPivotFile is the file name of the persisted pivot matrix.
const BookPivotFile = "book_pivot.gob"

// BookNamesFile is the file name of the persisted title list.
const BookNamesFile = "book_names.gob"

// PivotMatrix is the title-by-user rating matrix. Rows follow Titles, columns
// follow Users, missing ratings are 0. Row order is sorted and therefore
// identical between the writer and every reader.
type PivotMatrix struct {
	Titles *base.Index
	Users  *base.Index
	Values [][]float32
}

// Row returns one title profile across all users.
func (m *PivotMatrix) Row(i int32) []float32 {
	return m.Values[i]
}

// DataTransformation builds and persists the pivot matrix and title list.
type DataTransformation struct {
	cfg    config.DataTransformationConfig
	valCfg config.DataValidationConfig
	logger *zap.Logger
}

// NewDataTransformation creates a DataTransformation stage.
func NewDataTransformation(cfg config.DataTransformationConfig, valCfg config.DataValidationConfig, logger *zap.Logger) *DataTransformation {
	return &DataTransformation{cfg: cfg, valCfg: valCfg, logger: logger}
}

// Run loads the cleaned table, builds the pivot and persists it. The pivot is
// written twice: into the transformed data directory for the trainer, and
// into the serialized objects directory for query-time loading. The title
// list is persisted separately so a front-end can list options without
// materializing the matrix.
func (dt *DataTransformation) Run() error {
	cleanPath := filepath.Join(dt.valCfg.CleanDataDir, validation.CleanDataFile)
	f, err := os.Open(cleanPath)
	if err != nil {
		return base.NewTransformationError(errors.Trace(err))
	}
	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	f.Close()
	if df.Err != nil {
		return base.NewTransformationError(errors.Trace(df.Err))
	}
	rows, err := validation.ToBookRatings(df)
	if err != nil {
		return base.NewTransformationError(errors.Trace(err))
	}

	pivot, err := BuildPivot(rows)
	if err != nil {
		dt.logger.Error("pivot build failed", zap.String("source", cleanPath), zap.Error(err))
		return base.NewTransformationError(err)
	}
	dt.logger.Info("built pivot matrix",
		zap.Int32("titles", pivot.Titles.Len()),
		zap.Int32("users", pivot.Users.Len()),
		zap.Float64("mean_rating", meanNonZero(pivot)))

	for _, dir := range []string{dt.cfg.TransformedDataDir, dt.valCfg.SerializedObjectsDir} {
		path := filepath.Join(dir, BookPivotFile)
		if err := encoding.SaveObject(path, pivot); err != nil {
			return base.NewTransformationError(errors.Trace(err))
		}
		dt.logger.Info("wrote pivot matrix", zap.String("path", path))
	}
	namesPath := filepath.Join(dt.valCfg.SerializedObjectsDir, BookNamesFile)
	if err := encoding.SaveObject(namesPath, pivot.Titles.GetNames()); err != nil {
		return base.NewTransformationError(errors.Trace(err))
	}
	dt.logger.Info("wrote title list", zap.String("path", namesPath))
	return nil
}

// BuildPivot pivots cleaned ratings into a title-by-user matrix. Titles and
// users are sorted before indexing so the layout does not depend on input
// order.
func BuildPivot(rows []validation.BookRating) (*PivotMatrix, error) {
	if len(rows) == 0 {
		return nil, errors.New("cleaned table has no rows")
	}
	titleSet := make(map[string]struct{})
	userSet := make(map[string]struct{})
	for _, row := range rows {
		titleSet[row.Title] = struct{}{}
		userSet[row.UserID] = struct{}{}
	}
	titles := make([]string, 0, len(titleSet))
	for title := range titleSet {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	users := make([]string, 0, len(userSet))
	for user := range userSet {
		users = append(users, user)
	}
	sort.Strings(users)

	pivot := &PivotMatrix{Titles: base.NewIndex(), Users: base.NewIndex()}
	for _, title := range titles {
		pivot.Titles.Add(title)
	}
	for _, user := range users {
		pivot.Users.Add(user)
	}
	pivot.Values = make([][]float32, len(titles))
	for i := range pivot.Values {
		pivot.Values[i] = make([]float32, len(users))
	}
	for _, row := range rows {
		i := pivot.Titles.ToNumber(row.Title)
		j := pivot.Users.ToNumber(row.UserID)
		pivot.Values[i][j] = row.Rating
	}
	return pivot, nil
}

// meanNonZero returns the mean of the non-zero ratings in the matrix.
func meanNonZero(pivot *PivotMatrix) float64 {
	values := make([]float64, 0)
	for _, row := range pivot.Values {
		for _, value := range row {
			if value != 0 {
				values = append(values, float64(value))
			}
		}
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
