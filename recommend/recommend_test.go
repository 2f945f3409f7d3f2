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

package recommend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/base/encoding"
	"github.com/bookworm-io/bookworm/config"
	"github.com/bookworm-io/bookworm/trainer"
	"github.com/bookworm-io/bookworm/transform"
	"github.com/bookworm-io/bookworm/validation"
)

// writeArtifacts persists a complete artifact set for the given cleaned rows
// and returns the pretrained configuration pointing at them.
func writeArtifacts(t *testing.T, rows []validation.BookRating, numNeighbors int) config.PretrainedConfig {
	dir := t.TempDir()
	pivot, err := transform.BuildPivot(rows)
	require.NoError(t, err)
	model, err := trainer.Fit(pivot, numNeighbors)
	require.NoError(t, err)
	cfg := config.PretrainedConfig{
		PretrainedDir:          dir,
		PretrainedModel:        filepath.Join(dir, "model.gob"),
		PretrainedBookNames:    filepath.Join(dir, "book_names.gob"),
		PretrainedFinalRatings: filepath.Join(dir, "final_ratings.gob"),
		PretrainedBookPivot:    filepath.Join(dir, "book_pivot.gob"),
	}
	require.NoError(t, encoding.SaveObject(cfg.PretrainedModel, model))
	require.NoError(t, encoding.SaveObject(cfg.PretrainedBookNames, pivot.Titles.GetNames()))
	require.NoError(t, encoding.SaveObject(cfg.PretrainedFinalRatings, rows))
	require.NoError(t, encoding.SaveObject(cfg.PretrainedBookPivot, pivot))
	return cfg
}

func tenTitles() []validation.BookRating {
	rows := make([]validation.BookRating, 0)
	for i := 0; i < 10; i++ {
		title := string(rune('A' + i))
		rows = append(rows,
			validation.BookRating{UserID: "u1", Title: title, Rating: 1, ImageURL: "http://img/l/" + title},
			validation.BookRating{UserID: "u2", Title: title, Rating: float32(i + 1), ImageURL: "http://img/l/" + title})
	}
	return rows
}

func TestRecommend(t *testing.T) {
	cfg := writeArtifacts(t, tenTitles(), 6)
	r, err := NewRecommender(cfg, 6, zap.NewNop())
	require.NoError(t, err)

	assert.Len(t, r.ListTitles(), 10)
	for _, title := range r.ListTitles() {
		titles, posters, err := r.Recommend(title)
		require.NoError(t, err)
		// always exactly 6 entries in both lists, self first
		assert.Len(t, titles, 6)
		assert.Len(t, posters, 6)
		assert.Equal(t, title, titles[0])
		for i, poster := range posters {
			assert.Equal(t, "http://img/l/"+titles[i], poster)
		}
	}
}

func TestRecommendUnknownTitle(t *testing.T) {
	cfg := writeArtifacts(t, tenTitles(), 6)
	r, err := NewRecommender(cfg, 6, zap.NewNop())
	require.NoError(t, err)

	_, _, err = r.Recommend("Nonexistent Title")
	var notFound *base.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRecommendDuplicateProfiles(t *testing.T) {
	// two titles with identical rating profiles tie at distance 0; the
	// queried title must still come first
	rows := tenTitles()
	rows = append(rows,
		validation.BookRating{UserID: "u1", Title: "Twin1", Rating: 2, ImageURL: "http://img/l/Twin1"},
		validation.BookRating{UserID: "u2", Title: "Twin1", Rating: 2, ImageURL: "http://img/l/Twin1"},
		validation.BookRating{UserID: "u1", Title: "Twin2", Rating: 2, ImageURL: "http://img/l/Twin2"},
		validation.BookRating{UserID: "u2", Title: "Twin2", Rating: 2, ImageURL: "http://img/l/Twin2"})
	cfg := writeArtifacts(t, rows, 6)
	r, err := NewRecommender(cfg, 6, zap.NewNop())
	require.NoError(t, err)

	for _, twin := range []string{"Twin1", "Twin2"} {
		titles, _, err := r.Recommend(twin)
		require.NoError(t, err)
		assert.Equal(t, twin, titles[0])
	}
}

func TestRecommendMoreDuplicateProfilesThanNeighbors(t *testing.T) {
	// eight titles share one rating profile while only six neighbors are
	// returned, so the search can evict the queried row from its own
	// result; every query must still get itself back first
	rows := make([]validation.BookRating, 0)
	for i := 0; i < 8; i++ {
		title := string(rune('A' + i))
		rows = append(rows,
			validation.BookRating{UserID: "u1", Title: title, Rating: 3, ImageURL: "http://img/l/" + title},
			validation.BookRating{UserID: "u2", Title: title, Rating: 4, ImageURL: "http://img/l/" + title})
	}
	cfg := writeArtifacts(t, rows, 6)
	r, err := NewRecommender(cfg, 6, zap.NewNop())
	require.NoError(t, err)

	for _, title := range r.ListTitles() {
		titles, posters, err := r.Recommend(title)
		require.NoError(t, err)
		assert.Len(t, titles, 6)
		assert.Equal(t, title, titles[0])
		seen := make(map[string]bool)
		for i, neighbor := range titles {
			assert.False(t, seen[neighbor])
			seen[neighbor] = true
			assert.Equal(t, "http://img/l/"+neighbor, posters[i])
		}
	}
}

func TestRecommendPosterLookupFailure(t *testing.T) {
	rows := tenTitles()
	cfg := writeArtifacts(t, rows, 6)
	// rewrite the final ratings artifact without title "A", simulating
	// drift between independently derived artifacts
	var broken []validation.BookRating
	for _, row := range rows {
		if row.Title != "A" {
			broken = append(broken, row)
		}
	}
	require.NoError(t, encoding.SaveObject(cfg.PretrainedFinalRatings, broken))
	r, err := NewRecommender(cfg, 6, zap.NewNop())
	require.NoError(t, err)

	_, _, err = r.Recommend("A")
	var posterError *base.PosterLookupError
	assert.ErrorAs(t, err, &posterError)
}
