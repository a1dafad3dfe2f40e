package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"

	"go-image-restorer/internal/logger"
)

// Publisher copies a finished job's artifacts to durable storage
type Publisher interface {
	Publish(ctx context.Context, jobID string) (int, error)
}

// blobUploader is the subset of *azblob.Client used for publishing
type blobUploader interface {
	UploadFile(ctx context.Context, containerName, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

type azurePublisher struct {
	client    blobUploader
	container string
	layout    Layout
}

// NewAzurePublisher uploads job directories to containerName using shared key auth
func NewAzurePublisher(accountName, accountKey, containerName string, layout Layout) (Publisher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return newAzurePublisher(client, containerName, layout), nil
}

func newAzurePublisher(client blobUploader, containerName string, layout Layout) *azurePublisher {
	return &azurePublisher{client: client, container: containerName, layout: layout}
}

// Publish uploads every file below the job directory as <jobID>/<relative path>.
// It stops at the first failed upload and returns how many blobs were written.
func (p *azurePublisher) Publish(ctx context.Context, jobID string) (int, error) {
	root := p.layout.JobDir(jobID)
	uploaded := 0

	err := filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, file)
		if err != nil {
			return err
		}
		blobName := path.Join(jobID, filepath.ToSlash(rel))
		if err := p.uploadFile(ctx, file, blobName); err != nil {
			return err
		}
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, fmt.Errorf("publish job %s: %w", jobID, err)
	}

	logger.WithFields(logrus.Fields{
		"job_id":    jobID,
		"container": p.container,
		"blobs":     uploaded,
	}).Info("Published job artifacts")
	return uploaded, nil
}

// uploadFile streams one file in blocks instead of loading it into memory
func (p *azurePublisher) uploadFile(ctx context.Context, file, blobName string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := p.client.UploadFile(ctx, p.container, blobName, f, nil); err != nil {
		return fmt.Errorf("upload %s: %w", blobName, err)
	}
	return nil
}
