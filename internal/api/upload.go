package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// ImageFile is one image to upload. ID is caller-assigned and comes back in
// the result so uploaded paths can be matched to pending attachments.
type ImageFile struct {
	ID   string
	Name string
	Data io.Reader
}

// UploadImages pushes attachments to object storage before a prompt send.
// The multipart form carries one "images" file part per image plus an
// "images_id" text part in the same order.
func (c *Client) UploadImages(ctx context.Context, projectID string, images []ImageFile) (*UploadResult, error) {
	if len(images) == 0 {
		return nil, errors.New("api: no images to upload")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	for _, img := range images {
		part, err := form.CreateFormFile("images", img.Name)
		if err != nil {
			return nil, fmt.Errorf("api: build upload form: %w", err)
		}
		if _, err := io.Copy(part, img.Data); err != nil {
			return nil, fmt.Errorf("api: read image %q: %w", img.Name, err)
		}
		if err := form.WriteField("images_id", img.ID); err != nil {
			return nil, fmt.Errorf("api: build upload form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("api: build upload form: %w", err)
	}

	path := fmt.Sprintf("/api/v1/projects/%s/upload/images", url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result UploadResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
