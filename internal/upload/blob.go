// Package upload pushes dataset CSVs and their data-dictionary sidecars to
// Azure Blob Storage using SAS-token authenticated PUTs.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicworks/parcel-cli/internal/fetcher"
	"github.com/civicworks/parcel-cli/internal/table"
)

// Config holds the blob storage target. All credentials arrive here; nothing
// is read from the environment at upload time.
type Config struct {
	AccountURL string        `yaml:"account_url" mapstructure:"account_url"` // https://<account>.blob.core.windows.net
	Container  string        `yaml:"container" mapstructure:"container"`
	Folder     string        `yaml:"folder" mapstructure:"folder"`
	SASToken   string        `yaml:"sas_token" mapstructure:"sas_token"` // without leading "?"
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	DictFormat DictFormat    `yaml:"dict_format" mapstructure:"dict_format"`
}

// Uploader writes frames to blob storage.
type Uploader struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// NewUploader validates the config and returns an Uploader.
func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.AccountURL == "" || cfg.Container == "" {
		return nil, eris.New("upload: account URL and container are required")
	}
	if cfg.SASToken == "" {
		return nil, eris.New("upload: SAS token is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Uploader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}, nil
}

// UploadFrame writes the frame as <folder>/<name>_<yyyymmdd>.csv plus a
// data-dictionary sidecar, and returns the CSV blob name. An empty frame is
// an error; there is nothing worth uploading.
func (u *Uploader) UploadFrame(ctx context.Context, name string, f *table.Frame) (string, error) {
	if f == nil || f.Len() == 0 {
		return "", eris.Errorf("upload: no data for %s", name)
	}

	var body bytes.Buffer
	if err := fetcher.WriteCSV(&body, f); err != nil {
		return "", err
	}

	stamp := u.now().UTC().Format("20060102")
	base := fmt.Sprintf("%s_%s", name, stamp)
	csvBlob := u.blobName(base + ".csv")

	if err := u.put(ctx, csvBlob, "text/csv", body.Bytes()); err != nil {
		return "", err
	}

	dict := BuildDictionary(f, stamp)
	dictBody, suffix, err := dict.Encode(u.cfg.DictFormat)
	if err != nil {
		return "", err
	}
	dictBlob := u.blobName(base + suffix)
	if err := u.put(ctx, dictBlob, "application/octet-stream", dictBody); err != nil {
		return "", err
	}

	zap.L().Info("upload: frame uploaded",
		zap.String("blob", csvBlob),
		zap.Int("rows", f.Len()),
	)
	return csvBlob, nil
}

func (u *Uploader) blobName(file string) string {
	if u.cfg.Folder == "" {
		return file
	}
	return strings.TrimSuffix(u.cfg.Folder, "/") + "/" + file
}

func (u *Uploader) put(ctx context.Context, blobName, contentType string, body []byte) error {
	url := fmt.Sprintf("%s/%s/%s?%s",
		strings.TrimSuffix(u.cfg.AccountURL, "/"),
		u.cfg.Container,
		blobName,
		u.cfg.SASToken,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "upload: build request for %s", blobName)
	}
	req.Header.Set("x-ms-blob-type", "BlockBlob")
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "upload: PUT %s", blobName)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return eris.Errorf("upload: PUT %s: status %d: %s", blobName, resp.StatusCode, string(snippet))
	}
	return nil
}
