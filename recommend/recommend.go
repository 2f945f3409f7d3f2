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

// Package recommend serves top-k similar-title queries against the fitted
// artifacts. A Recommender is read-only after construction and safe for
// concurrent queries, as long as no training run rewrites the artifacts
// underneath it.
package recommend

import (
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/base/search"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/transform"
	"github.com/bookworm-io/bookworm/validation"
)

// Recommender answers similar-title queries from the pretrained artifacts.
// All artifacts are loaded once at construction, never per query.
type Recommender struct {
	numNeighbors int
	logger       *zap.Logger
	model        *search.Bruteforce
	pivot        *transform.PivotMatrix
	titles       []string
	posters      map[string]string
}

// NewRecommender loads the model, pivot matrix, title list and final-ratings
// artifacts referenced by the pretrained configuration.
func NewRecommender(cfg config.PretrainedConfig, numNeighbors int, logger *zap.Logger) (*Recommender, error) {
	r := &Recommender{numNeighbors: numNeighbors, logger: logger}
	r.model = &search.Bruteforce{}
	if err := encoding.LoadObject(cfg.PretrainedModel, r.model); err != nil {
		return nil, err
	}
	r.pivot = &transform.PivotMatrix{}
	if err := encoding.LoadObject(cfg.PretrainedBookPivot, r.pivot); err != nil {
		return nil, err
	}
	if err := encoding.LoadObject(cfg.PretrainedBookNames, &r.titles); err != nil {
		return nil, err
	}
	var finalRatings []validation.BookRating
	if err := encoding.LoadObject(cfg.PretrainedFinalRatings, &finalRatings); err != nil {
		return nil, err
	}
	// first matching row wins, matching is exact string equality
	r.posters = make(map[string]string)
	for _, row := range finalRatings {
		if _, exist := r.posters[row.Title]; !exist {
			r.posters[row.Title] = row.ImageURL
		}
	}
	logger.Info("loaded pretrained artifacts",
		zap.Int("titles", len(r.titles)),
		zap.Int("vectors", r.model.Len()))
	return r, nil
}

// ListTitles returns the selectable titles in pivot row order.
func (r *Recommender) ListTitles() []string {
	return r.titles
}

// Recommend returns the k nearest titles to the given title together with
// their cover image URLs, closest first. The queried title is not excluded
// from the search, so it appears at index 0 at distance 0; presentation
// layers are expected to display entries 1 onward.
func (r *Recommender) Recommend(title string) ([]string, []string, error) {
	id := r.pivot.Titles.ToNumber(title)
	if id == base.NotId {
		r.logger.Warn("queried title absent from pivot index", zap.String("title", title))
		return nil, nil, &base.NotFoundError{Title: title}
	}
	query := search.NewSparseVectorFromDense(r.pivot.Row(id))
	indices, distances := r.model.Search(query, r.numNeighbors)
	// duplicate rating profiles tie with the query row at distance 0 and can
	// reorder it or push it out of the result, keep the query row first
	pos := -1
	for i, index := range indices {
		if index == id {
			pos = i
			break
		}
	}
	switch {
	case pos > 0:
		indices[0], indices[pos] = indices[pos], indices[0]
		distances[0], distances[pos] = distances[pos], distances[0]
	case pos < 0:
		indices = append([]int32{id}, indices[:len(indices)-1]...)
		distances = append([]float32{0}, distances[:len(distances)-1]...)
	}
	titles := make([]string, 0, len(indices))
	for _, index := range indices {
		titles = append(titles, r.pivot.Titles.ToName(index))
	}
	posters, err := r.fetchPosters(titles)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("served recommendation",
		zap.String("title", title), zap.Strings("neighbors", titles))
	return titles, posters, nil
}

// fetchPosters looks up the cover image URL for each title in the
// final-ratings artifact.
func (r *Recommender) fetchPosters(titles []string) ([]string, error) {
	posters := make([]string, 0, len(titles))
	for _, title := range titles {
		url, exist := r.posters[title]
		if !exist {
			r.logger.Error("title missing from final ratings artifact", zap.String("title", title))
			return nil, &base.PosterLookupError{Title: title}
		}
		posters = append(posters, url)
	}
	return posters, nil
}
