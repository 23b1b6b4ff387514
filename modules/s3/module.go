// Package s3 provides the "s3" node type, which transfers files through
// pre-signed S3 URLs.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/hookgrid/internal/ctxlog"
	"github.com/vk/hookgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by all transfers. Defaults to http.DefaultClient.
	Client *http.Client
}

// Input defines the arguments for the s3 runner.
type Input struct {
	Action      string `arg:"action"`
	SourcePath  string `arg:"source_path,optional"`
	UploadURL   string `arg:"upload_url,optional"`
	DownloadURL string `arg:"download_url,optional"`
	DestPath    string `arg:"dest_path,optional"`
}

// Output defines the data structure returned by the runner.
type Output struct {
	Success bool   `cty:"success"`
	Status  string `cty:"status"`
	Bytes   int64  `cty:"bytes"`
	Path    string `cty:"path"`
}

func handleUpload(ctx context.Context, client *http.Client, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload")
	if input.SourcePath == "" || input.UploadURL == "" {
		return nil, fmt.Errorf("s3 upload requires 'source_path' and 'upload_url'")
	}

	file, err := os.Open(input.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for '%s': %w", input.SourcePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, input.UploadURL, file)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(input.SourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3.", "source", input.SourcePath, "size", stat.Size(), "contentType", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded file.", "status", resp.Status)
	return &Output{Success: true, Status: resp.Status, Bytes: stat.Size(), Path: input.SourcePath}, nil
}

func handleDownload(ctx context.Context, client *http.Client, input *Input) (*Output, error) {
	logger := ctxlog.FromContext(ctx).With("action", "download")
	if input.DownloadURL == "" || input.DestPath == "" {
		return nil, fmt.Errorf("s3 download requires 'download_url' and 'dest_path'")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.DownloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 download failed with status: %s", resp.Status)
	}

	// A failed transfer never leaves a partial file at dest_path.
	tmp, err := os.CreateTemp(filepath.Dir(input.DestPath), ".s3-download-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write '%s': %w", input.DestPath, err)
	}
	if err := os.Rename(tmp.Name(), input.DestPath); err != nil {
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}

	logger.Info("Successfully downloaded file.", "dest", input.DestPath, "size", n)
	return &Output{Success: true, Status: resp.Status, Bytes: n, Path: input.DestPath}, nil
}

// Run returns the handler bound to client.
func Run(client *http.Client) func(ctx context.Context, input *Input) (*Output, error) {
	return func(ctx context.Context, input *Input) (*Output, error) {
		switch strings.ToLower(input.Action) {
		case "upload":
			return handleUpload(ctx, client, input)
		case "download":
			return handleDownload(ctx, client, input)
		default:
			return nil, fmt.Errorf("unknown s3 action: '%s'", input.Action)
		}
	}
}

// Register registers the handler with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	r.RegisterRunner("s3", &registry.RegisteredRunner{
		NewInput: func() any { return new(Input) },
		Fn:       Run(client),
	})
}
