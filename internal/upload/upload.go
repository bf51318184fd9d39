// Package upload carries admin images to the API's upload endpoint. All
// rejections that can be decided locally — unknown folder, non-image MIME,
// file over the folder's ceiling — happen before a single byte leaves the
// process, and progress is reported as a monotonic 0–100 percentage.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lkpmandiri/backoffice/internal/api"
	"github.com/lkpmandiri/backoffice/model"
)

// Limits maps upload folders to their byte ceilings, collected from the
// resource definitions at startup. A folder not present here is rejected.
type Limits struct {
	folders map[string]int64
}

// LimitsFromDefinitions collects every upload section's folder and ceiling.
// When two resources share a folder the stricter ceiling wins.
func LimitsFromDefinitions(defs []model.ResourceDefinition) *Limits {
	l := &Limits{folders: make(map[string]int64)}
	for _, def := range defs {
		if def.Upload == nil {
			continue
		}
		maxBytes := def.Upload.MaxBytes()
		if current, exists := l.folders[def.Upload.Folder]; !exists || maxBytes < current {
			l.folders[def.Upload.Folder] = maxBytes
		}
	}
	return l
}

// MaxBytes returns the ceiling for a folder.
func (l *Limits) MaxBytes(folder string) (int64, bool) {
	maxBytes, ok := l.folders[folder]
	return maxBytes, ok
}

// Validate applies the local checks for one candidate file. The order is
// fixed: folder, media type, then size, so the user hears about a wrong file
// before a big one.
func (l *Limits) Validate(folder, contentType string, size int64) error {
	maxBytes, ok := l.MaxBytes(folder)
	if !ok {
		return &model.ErrorEnvelope{
			Code:    model.ErrUnknownUploadScope,
			Message: fmt.Sprintf("Upload folder %q is not configured", folder),
		}
	}
	if !strings.HasPrefix(contentType, "image/") {
		return model.NewUnsupportedMediaError(contentType)
	}
	if size > maxBytes {
		return model.NewUploadTooLargeError(maxBytes)
	}
	return nil
}

// ProgressFunc receives upload progress as a whole percentage. It is called
// with strictly increasing values and always ends at 100 on success.
type ProgressFunc func(percent int)

// Uploader sends validated files to the API.
type Uploader struct {
	client *api.Client
	limits *Limits
}

// NewUploader creates an Uploader over the shared api client.
func NewUploader(client *api.Client, limits *Limits) *Uploader {
	return &Uploader{client: client, limits: limits}
}

// Upload validates the file locally, then posts it as multipart form data
// with the folder name alongside. The returned URL is what the form writes
// into its image field. progress may be nil.
func (u *Uploader) Upload(
	ctx context.Context,
	folder, filename, contentType string,
	file io.Reader,
	size int64,
	progress ProgressFunc,
) (model.UploadResult, error) {
	if err := u.limits.Validate(folder, contentType, size); err != nil {
		return model.UploadResult{}, err
	}

	body, formContentType, err := buildMultipart(folder, filename, file, size)
	if err != nil {
		return model.UploadResult{}, err
	}

	reader := &progressReader{
		reader:   bytes.NewReader(body),
		total:    int64(len(body)),
		progress: progress,
	}
	raw, err := u.client.Do(ctx, http.MethodPost, "/admin/upload", nil, &api.MultipartBody{
		Reader:      reader,
		ContentType: formContentType,
	})
	if err != nil {
		return model.UploadResult{}, mapUploadError(err)
	}

	result, err := decodeResult(raw)
	if err != nil {
		return model.UploadResult{}, err
	}
	reader.finish()
	return result, nil
}

// buildMultipart assembles the request body in memory. Ceilings are a few
// megabytes, so buffering beats the complexity of a streaming pipe.
func buildMultipart(folder, filename string, file io.Reader, size int64) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("upload: create form file: %w", err)
	}
	written, err := io.Copy(part, io.LimitReader(file, size+1))
	if err != nil {
		return nil, "", fmt.Errorf("upload: read file: %w", err)
	}
	// The declared size is a promise; a reader that keeps going was lying.
	if written > size {
		return nil, "", model.NewBadRequestError("File is larger than its declared size")
	}

	if err := writer.WriteField("folder", folder); err != nil {
		return nil, "", fmt.Errorf("upload: write folder field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("upload: close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// mapUploadError keeps the codes the caller can act on and collapses the rest
// into UPLOAD_FAILED with the server's message when one exists.
func mapUploadError(err error) error {
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok {
		return model.NewUploadFailedError("")
	}
	switch ee.Code {
	case model.ErrUploadTooLarge,
		model.ErrUnauthorized,
		model.ErrBackendTimeout,
		model.ErrBackendUnavailable,
		model.ErrValidationError:
		return ee
	default:
		return model.NewUploadFailedError(ee.Message)
	}
}

func decodeResult(raw json.RawMessage) (model.UploadResult, error) {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 && wrapped.Data[0] == '{' {
		raw = wrapped.Data
	}

	var result model.UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.UploadResult{}, fmt.Errorf("upload: decode response: %w", err)
	}
	if result.URL == "" {
		return model.UploadResult{}, model.NewUploadFailedError("The server did not return a file URL")
	}
	return result, nil
}

// progressReader reports read progress as a monotonic percentage. 100 is
// reserved for finish, so the caller never sees completion before the server
// has answered.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	last     int
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.read += int64(n)
	if r.progress != nil && r.total > 0 {
		percent := int(r.read * 100 / r.total)
		if percent > 99 {
			percent = 99
		}
		if percent > r.last {
			r.last = percent
			r.progress(percent)
		}
	}
	return n, err
}

func (r *progressReader) finish() {
	if r.progress != nil && r.last < 100 {
		r.last = 100
		r.progress(100)
	}
}
