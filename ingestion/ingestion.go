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

// Package ingestion fetches the dataset archive and unpacks it into the
// ingested data directory. Re-running overwrites prior contents.
package ingestion

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/bookworm-io/bookworm/base"
	"github.com/bookworm-io/bookworm/config"
)

const maxDownloadTries = 3

// DataIngestion downloads and extracts one dataset snapshot.
type DataIngestion struct {
	cfg    config.DataIngestionConfig
	logger *zap.Logger
}

// NewDataIngestion creates a DataIngestion stage.
func NewDataIngestion(cfg config.DataIngestionConfig, logger *zap.Logger) *DataIngestion {
	return &DataIngestion{cfg: cfg, logger: logger}
}

// Run downloads the archive into the raw data directory and extracts it into
// the ingested data directory. It returns the extraction path. The download
// is retried with exponential backoff; extraction is not.
func (di *DataIngestion) Run(ctx context.Context) (string, error) {
	zipPath, err := backoff.Retry(ctx, func() (string, error) {
		return di.downloadData(ctx)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxDownloadTries))
	if err != nil {
		di.logger.Error("failed to download dataset",
			zap.String("url", di.cfg.DatasetDownloadURL), zap.Error(err))
		return "", base.NewIngestionError(err)
	}
	if err := di.extractZipFile(zipPath); err != nil {
		di.logger.Error("failed to extract dataset",
			zap.String("archive", zipPath), zap.Error(err))
		return "", base.NewIngestionError(err)
	}
	return di.cfg.IngestedDataDir, nil
}

// downloadData fetches the archive from the configured URL into the raw data
// directory and returns the local file path.
func (di *DataIngestion) downloadData(ctx context.Context) (string, error) {
	src := di.cfg.DatasetDownloadURL
	tokens := strings.Split(src, "/")
	fileName := filepath.Join(di.cfg.RawDataDir, tokens[len(tokens)-1])
	di.logger.Info("download dataset", zap.String("source", src), zap.String("destination", fileName))
	if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
		return "", backoff.Permanent(errors.Trace(err))
	}
	output, err := os.Create(fileName)
	if err != nil {
		return "", backoff.Permanent(errors.Trace(err))
	}
	defer output.Close()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", backoff.Permanent(errors.Trace(err))
	}
	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Trace(err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		err := errors.Errorf("unexpected status %s from %s", response.Status, src)
		// client errors will not resolve on retry
		if response.StatusCode >= 400 && response.StatusCode < 500 {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	bar := progressbar.DefaultBytes(response.ContentLength, "Downloading dataset")
	if _, err = io.Copy(io.MultiWriter(output, bar), response.Body); err != nil {
		return "", errors.Trace(err)
	}
	return fileName, nil
}

// extractZipFile unpacks the archive into the ingested data directory.
func (di *DataIngestion) extractZipFile(src string) error {
	dst := di.cfg.IngestedDataDir
	if err := os.MkdirAll(dst, os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	r, err := zip.OpenReader(src)
	if err != nil {
		return errors.Trace(err)
	}
	defer r.Close()
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return errors.Trace(err)
		}
		filePath := filepath.Join(dst, f.Name)
		// Check for ZipSlip. More Info: http://bit.ly/2MsjAWE
		if !strings.HasPrefix(filePath, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("%s: illegal file path", filePath)
		}
		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(filePath, os.ModePerm); err != nil {
				return errors.Trace(err)
			}
		} else {
			if err = os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
				return errors.Trace(err)
			}
			outFile, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
			if err != nil {
				return errors.Trace(err)
			}
			if _, err = io.Copy(outFile, rc); err != nil {
				outFile.Close()
				return errors.Trace(err)
			}
			// Close the file without defer to close before next iteration of loop
			if err = outFile.Close(); err != nil {
				return errors.Trace(err)
			}
		}
		if err = rc.Close(); err != nil {
			return errors.Trace(err)
		}
		di.logger.Debug("extracted file", zap.String("path", filePath))
	}
	di.logger.Info("extracted dataset", zap.String("archive", src), zap.String("destination", dst))
	return nil
}
