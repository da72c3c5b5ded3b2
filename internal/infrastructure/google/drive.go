// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package google

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-google-meet-service/internal/domain/models"
)

// maxDownloadBytes bounds the size of a downloaded transcript document.
const maxDownloadBytes = 32 << 20

// DriveClient implements domain.DriveClient on the Drive v3 API
type DriveClient struct {
	*Client
}

// Ensure that DriveClient implements domain.DriveClient
var _ domain.DriveClient = (*DriveClient)(nil)

// NewDriveClient creates a new Drive client
func NewDriveClient(client *Client) *DriveClient {
	return &DriveClient{Client: client}
}

func (c *DriveClient) service(ctx context.Context, accountRef string) (*drive.Service, error) {
	opts, err := c.options(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return drive.NewService(ctx, opts...)
}

// FindFiles runs a Drive search query and returns the matching files.
func (c *DriveClient) FindFiles(ctx context.Context, accountRef, query string) ([]*models.DriveFile, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	list, err := call(ctx, c.Client, "drive.files.list", func() (*drive.FileList, error) {
		return svc.Files.List().
			Q(query).
			Fields("files(id, name, mimeType)").
			OrderBy("createdTime desc").
			Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	files := make([]*models.DriveFile, 0, len(list.Files))
	for _, file := range list.Files {
		files = append(files, &models.DriveFile{ID: file.Id, Name: file.Name, MimeType: file.MimeType})
	}
	return files, nil
}

// DownloadFile returns the content of a binary Drive file.
func (c *DriveClient) DownloadFile(ctx context.Context, accountRef, fileID string) ([]byte, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return call(ctx, c.Client, "drive.files.get_media", func() ([]byte, error) {
		resp, err := svc.Files.Get(fileID).Context(ctx).Download()
		return readBody(resp, err)
	})
}

// ExportDocument exports a Google Docs document to mimeType.
func (c *DriveClient) ExportDocument(ctx context.Context, accountRef, documentID, mimeType string) ([]byte, error) {
	svc, err := c.service(ctx, accountRef)
	if err != nil {
		return nil, err
	}
	return call(ctx, c.Client, "drive.files.export", func() ([]byte, error) {
		resp, err := svc.Files.Export(documentID, mimeType).Context(ctx).Download()
		return readBody(resp, err)
	})
}

func readBody(resp *http.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDownloadBytes {
		return nil, fmt.Errorf("drive file exceeds %d bytes", maxDownloadBytes)
	}
	return body, nil
}
