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

// Package validation loads the raw books and ratings tables, filters out
// low-activity users and low-popularity titles, joins them on ISBN and
// persists the cleaned result for the downstream stages.
package validation

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/config"
)

// Raw column names of the Book-Crossing dump.
const (
	rawColUserID    = "User-ID"
	rawColISBN      = "ISBN"
	rawColRating    = "Book-Rating"
	rawColTitle     = "Book-Title"
	rawColAuthor    = "Book-Author"
	rawColYear      = "Year-Of-Publication"
	rawColPublisher = "Publisher"
	rawColImageS    = "Image-URL-S"
	rawColImageM    = "Image-URL-M"
	rawColImageL    = "Image-URL-L"
)

// Canonical column names of the cleaned table.
const (
	ColUserID       = "user_id"
	ColISBN         = "isbn"
	ColRating       = "rating"
	ColTitle        = "title"
	ColAuthor       = "author"
	ColYear         = "year"
	ColPublisher    = "publisher"
	ColImageURL     = "image_url"
	ColTotalRatings = "total_ratings"
)

// CleanDataFile is the file name of the cleaned table inside the clean data
// directory.
const CleanDataFile = "clean_data.csv"

// FinalRatingsFile is the file name of the serialized final-ratings artifact.
const FinalRatingsFile = "final_ratings.gob"

// rawSeparator is the field separator of the raw dump.
const rawSeparator = ';'

// BookRating is one row of the cleaned table: a rating event joined with its
// catalog entry. This is the artifact queried for poster URLs at
// recommendation time.
type BookRating struct {
	UserID       string
	ISBN         string
	Rating       float32
	Title        string
	Author       string
	Year         string
	Publisher    string
	ImageURL     string
	TotalRatings int
}

// DataValidation cleans the two raw tables into the final ratings artifact.
type DataValidation struct {
	cfg    config.DataValidationConfig
	logger *zap.Logger
}

// NewDataValidation creates a DataValidation stage.
func NewDataValidation(cfg config.DataValidationConfig, logger *zap.Logger) *DataValidation {
	return &DataValidation{cfg: cfg, logger: logger}
}

// Run cleans the configured sources and persists both the cleaned table and
// the final-ratings artifact.
func (dv *DataValidation) Run() error {
	ratings, err := dv.loadTable(dv.cfg.RatingsCSVFile)
	if err != nil {
		return base.NewValidationError(err)
	}
	books, err := dv.loadTable(dv.cfg.BooksCSVFile)
	if err != nil {
		return base.NewValidationError(err)
	}
	cleaned, err := dv.clean(ratings, books)
	if err != nil {
		dv.logger.Error("cleaning failed", zap.Error(err))
		return base.NewValidationError(err)
	}
	if err := dv.persist(cleaned); err != nil {
		dv.logger.Error("failed to persist cleaned table", zap.Error(err))
		return base.NewValidationError(err)
	}
	return nil
}

// loadTable reads a `;`-separated table permissively: malformed rows are
// skipped rather than aborting the load. A missing file or a table with zero
// data rows is an error.
func (dv *DataValidation) loadTable(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Trace(err)
	}
	defer f.Close()
	records, skipped, err := readDelimited(f, rawSeparator)
	if err != nil {
		return dataframe.DataFrame{}, errors.Trace(err)
	}
	if len(records) < 2 {
		return dataframe.DataFrame{}, errors.Errorf("no rows parsed from %s", path)
	}
	if skipped > 0 {
		dv.logger.Warn("skipped malformed rows",
			zap.String("file", path), zap.Int("skipped", skipped))
	}
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(df.Err)
	}
	dv.logger.Info("loaded table",
		zap.String("file", path), zap.Int("rows", df.Nrow()), zap.Int("columns", df.Ncol()))
	return df, nil
}

// readDelimited parses delimited text. Rows whose field count differs from
// the header, and rows the CSV reader rejects, are counted and skipped.
func readDelimited(r io.Reader, sep rune) (records [][]string, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	var width int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				skipped++
				continue
			}
			return nil, skipped, errors.Trace(err)
		}
		if len(records) == 0 {
			width = len(row)
		} else if len(row) != width {
			skipped++
			continue
		}
		records = append(records, row)
	}
	return records, skipped, nil
}

// clean applies the seven cleaning steps in order: drop low-res image
// columns, rename to canonical names, filter low-activity users, inner join
// on ISBN, filter low-popularity titles, deduplicate by (user_id, title).
func (dv *DataValidation) clean(ratings, books dataframe.DataFrame) (dataframe.DataFrame, error) {
	// only the full-size image URL is needed for display
	books = books.Select([]string{rawColISBN, rawColTitle, rawColAuthor, rawColYear, rawColPublisher, rawColImageL})
	if books.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(books.Err)
	}
	books = books.
		Rename(ColISBN, rawColISBN).
		Rename(ColTitle, rawColTitle).
		Rename(ColAuthor, rawColAuthor).
		Rename(ColYear, rawColYear).
		Rename(ColPublisher, rawColPublisher).
		Rename(ColImageURL, rawColImageL)
	ratings = ratings.
		Rename(ColUserID, rawColUserID).
		Rename(ColISBN, rawColISBN).
		Rename(ColRating, rawColRating)
	if books.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(books.Err)
	}
	if ratings.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(ratings.Err)
	}

	// keep users with enough rating events
	userCounts := countValues(ratings.Col(ColUserID).Records())
	activeUsers := lo.Keys(lo.PickBy(userCounts, func(_ string, count int) bool {
		return count >= dv.cfg.MinUserRatings
	}))
	if len(activeUsers) == 0 {
		return dataframe.DataFrame{}, errors.Errorf("no user has at least %d ratings", dv.cfg.MinUserRatings)
	}
	ratings = ratings.Filter(dataframe.F{Colname: ColUserID, Comparator: series.In, Comparando: activeUsers})
	if ratings.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(ratings.Err)
	}
	dv.logger.Info("filtered low-activity users",
		zap.Int("active_users", len(activeUsers)), zap.Int("remaining_rows", ratings.Nrow()))

	// join with the catalog; ratings without a matching ISBN are dropped
	joined := ratings.InnerJoin(books, ColISBN)
	if joined.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(joined.Err)
	}
	dv.logger.Info("joined ratings with books", zap.Int("rows", joined.Nrow()))

	// keep titles with enough ratings among the joined set
	titleCounts := countValues(joined.Col(ColTitle).Records())
	popularTitles := lo.Keys(lo.PickBy(titleCounts, func(_ string, count int) bool {
		return count >= dv.cfg.MinBookRatings
	}))
	if len(popularTitles) == 0 {
		return dataframe.DataFrame{}, errors.Errorf("no title has at least %d ratings", dv.cfg.MinBookRatings)
	}
	joined = joined.Filter(dataframe.F{Colname: ColTitle, Comparator: series.In, Comparando: popularTitles})
	if joined.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(joined.Err)
	}

	// deduplicate by (user_id, title) keeping first occurrence, and attach
	// the per-title rating count
	cleaned := dedupe(joined, titleCounts)
	if cleaned.Err != nil {
		return dataframe.DataFrame{}, errors.Trace(cleaned.Err)
	}
	if cleaned.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.New("no rows survived cleaning")
	}
	dv.logger.Info("cleaned table ready", zap.Int("rows", cleaned.Nrow()),
		zap.Int("titles", len(popularTitles)))
	return cleaned, nil
}

// countValues counts occurrences of each value.
func countValues(values []string) map[string]int {
	counts := make(map[string]int)
	for _, value := range values {
		counts[value]++
	}
	return counts
}

// dedupe drops duplicate (user_id, title) pairs keeping the first occurrence
// and rebuilds the table in canonical column order with a total_ratings
// column.
func dedupe(joined dataframe.DataFrame, titleCounts map[string]int) dataframe.DataFrame {
	ordered := joined.Select([]string{ColUserID, ColISBN, ColRating, ColTitle, ColAuthor, ColYear, ColPublisher, ColImageURL})
	if ordered.Err != nil {
		return ordered
	}
	records := ordered.Records()
	out := make([][]string, 0, len(records))
	out = append(out, append(records[0], ColTotalRatings))
	type pair struct{ user, title string }
	seen := make(map[pair]struct{})
	for _, row := range records[1:] {
		key := pair{user: row[0], title: row[3]}
		if _, exist := seen[key]; exist {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, append(row, strconv.Itoa(titleCounts[row[3]])))
	}
	return dataframe.LoadRecords(out,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
}

// persist writes the cleaned CSV into the clean data directory and the
// final-ratings artifact into the serialized objects directory.
func (dv *DataValidation) persist(cleaned dataframe.DataFrame) error {
	if err := os.MkdirAll(dv.cfg.CleanDataDir, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	cleanPath := filepath.Join(dv.cfg.CleanDataDir, CleanDataFile)
	f, err := os.Create(cleanPath)
	if err != nil {
		return errors.Trace(err)
	}
	if err := cleaned.WriteCSV(f); err != nil {
		f.Close()
		return errors.Trace(err)
	}
	if err := f.Close(); err != nil {
		return errors.Trace(err)
	}
	dv.logger.Info("wrote cleaned table", zap.String("path", cleanPath))

	finalRatings, err := ToBookRatings(cleaned)
	if err != nil {
		return errors.Trace(err)
	}
	artifactPath := filepath.Join(dv.cfg.SerializedObjectsDir, FinalRatingsFile)
	if err := encoding.SaveObject(artifactPath, finalRatings); err != nil {
		return errors.Trace(err)
	}
	dv.logger.Info("wrote final ratings artifact",
		zap.String("path", artifactPath), zap.Int("rows", len(finalRatings)))
	return nil
}

// ToBookRatings converts a cleaned table into typed rows.
func ToBookRatings(cleaned dataframe.DataFrame) ([]BookRating, error) {
	records := cleaned.Records()
	if len(records) == 0 {
		return nil, errors.New("empty cleaned table")
	}
	column := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		column[name] = i
	}
	for _, name := range []string{ColUserID, ColISBN, ColRating, ColTitle, ColAuthor, ColYear, ColPublisher, ColImageURL, ColTotalRatings} {
		if _, exist := column[name]; !exist {
			return nil, errors.Errorf("cleaned table misses column %s", name)
		}
	}
	rows := make([]BookRating, 0, len(records)-1)
	for _, record := range records[1:] {
		rating, err := strconv.ParseFloat(record[column[ColRating]], 32)
		if err != nil {
			return nil, errors.Trace(err)
		}
		totalRatings, err := strconv.Atoi(record[column[ColTotalRatings]])
		if err != nil {
			return nil, errors.Trace(err)
		}
		rows = append(rows, BookRating{
			UserID:       record[column[ColUserID]],
			ISBN:         record[column[ColISBN]],
			Rating:       float32(rating),
			Title:        record[column[ColTitle]],
			Author:       record[column[ColAuthor]],
			Year:         record[column[ColYear]],
			Publisher:    record[column[ColPublisher]],
			ImageURL:     record[column[ColImageURL]],
			TotalRatings: totalRatings,
		})
	}
	return rows, nil
}
