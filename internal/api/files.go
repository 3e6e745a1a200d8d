package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/nhle/automail/internal/model"
)

// FileClient talks to the file service group: uploads, listing and raw
// downloads of attachments.
type FileClient struct {
	client *Client
}

// NewFileClient creates a client for the file group.
func NewFileClient(svc model.ServiceConfig) *FileClient {
	return &FileClient{client: NewClient(model.GroupFile, svc)}
}

// Upload sends r as a multipart form with a single "file" field. Content
// over model.MaxUploadSize is rejected locally with ErrFileTooLarge.
func (f *FileClient) Upload(ctx context.Context, name string, r io.Reader) (model.FileInfo, error) {
	var info model.FileInfo

	content, err := io.ReadAll(io.LimitReader(r, model.MaxUploadSize+1))
	if err != nil {
		return info, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(content) > model.MaxUploadSize {
		err := fmt.Errorf("%s: %w", name, ErrFileTooLarge)
		f.client.finish(http.MethodPost, "/upload", outcomeInvalid, time.Now(), err)
		return info, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return info, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return info, fmt.Errorf("writing form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return info, fmt.Errorf("closing multipart body: %w", err)
	}

	start := time.Now()
	req, err := f.client.newRequest(ctx, http.MethodPost, "/upload", nil, &body)
	if err != nil {
		return info, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	err = f.client.exchange(req, "/upload", &info)
	f.client.finish(http.MethodPost, "/upload", outcomeFor(err), start, err)
	return info, err
}

// List returns every uploaded file.
func (f *FileClient) List(ctx context.Context) ([]model.FileInfo, error) {
	files := []model.FileInfo{}
	if err := f.client.Get(ctx, "/list", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Info returns the metadata of one file.
func (f *FileClient) Info(ctx context.Context, id string) (model.FileInfo, error) {
	var info model.FileInfo
	if err := requireID("file", id); err != nil {
		return info, err
	}
	err := f.client.Get(ctx, "/info"+segment(id), nil, &info)
	return info, err
}

// Delete removes a file from the service.
func (f *FileClient) Delete(ctx context.Context, id string) error {
	if err := requireID("file", id); err != nil {
		return err
	}
	return f.client.Delete(ctx, "/delete"+segment(id), nil)
}

// Download streams the raw content of a file into w and returns the
// number of bytes written. This endpoint is not enveloped.
func (f *FileClient) Download(ctx context.Context, id string, w io.Writer) (n int64, err error) {
	if err := requireID("file", id); err != nil {
		return 0, err
	}
	path := "/download" + segment(id)
	start := time.Now()
	defer func() {
		f.client.finish(http.MethodGet, path, outcomeFor(err), start, err)
	}()

	req, err := f.client.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return 0, f.client.statusError(http.MethodGet, path, resp.StatusCode, body)
	}

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("copying download of %s: %w", id, err)
	}
	return n, nil
}
