package storage

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/table-inspector-go/internal/errors"
	"github.com/anime-shed/table-inspector-go/internal/preprocess"
	"github.com/anime-shed/table-inspector-go/pkg/models"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

// BlobScheme prefixes Azure Blob references: azblob://<container>/<blob>
const BlobScheme = "azblob"

// BlobStorage reads images from and writes result documents to Azure Blob Storage
type BlobStorage interface {
	ImageFetcher
	PutJSON(ctx context.Context, container, name string, data []byte) (string, error)
}

type azureStorage struct {
	client *azblob.Client
}

// NewAzureStorage creates a shared-key client for the given account
func NewAzureStorage(accountName string, accountKey string) (BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid Azure storage credentials", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to create Azure storage client", err)
	}

	return &azureStorage{client: client}, nil
}

// FetchImage downloads azblob://<container>/<blob> and decodes it
func (s *azureStorage) FetchImage(ctx context.Context, ref string) (image.Image, models.ImageMetadata, error) {
	container, name, err := ParseBlobRef(ref)
	if err != nil {
		return nil, models.ImageMetadata{}, err
	}

	resp, err := s.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, models.ImageMetadata{}, apperrors.NewTransportError("blob download failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, models.ImageMetadata{}, apperrors.NewTransportError("failed to read blob", err)
	}
	if len(data) > MaxImageBytes {
		return nil, models.ImageMetadata{}, apperrors.NewValidationError(fmt.Sprintf("image exceeds %d bytes", MaxImageBytes), nil)
	}

	return preprocess.DecodeBytes(data)
}

// PutJSON uploads data as <container>/<name> and returns its reference
func (s *azureStorage) PutJSON(ctx context.Context, container, name string, data []byte) (string, error) {
	contentType := "application/json; charset=utf-8"
	_, err := s.client.UploadBuffer(ctx, container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", apperrors.NewTransportError("blob upload failed", err)
	}
	return fmt.Sprintf("%s://%s/%s", BlobScheme, container, name), nil
}

// ParseBlobRef splits azblob://<container>/<blob path> into its parts
func ParseBlobRef(ref string) (container, name string, err error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", apperrors.NewValidationError("invalid blob reference", err)
	}
	if u.Scheme != BlobScheme {
		return "", "", apperrors.NewValidationError(fmt.Sprintf("expected %s:// reference", BlobScheme), nil)
	}

	container = u.Host
	name = strings.TrimPrefix(u.Path, "/")
	if container == "" || name == "" {
		return "", "", apperrors.NewValidationError("blob reference must name a container and a blob", nil)
	}
	return container, name, nil
}
