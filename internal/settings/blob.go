package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"

	"github.com/replypilot/replypilot/internal/models"
)

const blobName = "settings.json"

// BlobStore keeps settings in Azure Blob Storage so multiple instances
// share one configuration, the same way a browser extension roams its
// settings through sync storage.
type BlobStore struct {
	client        *azblob.Client
	containerName string
	mu            sync.Mutex
}

var _ Store = (*BlobStore)(nil)

// NewBlobStore creates a blob-backed store using managed identity.
func NewBlobStore(accountName, containerName string) (*BlobStore, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	store := &BlobStore{client: client, containerName: containerName}
	if err := store.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}
	return store, nil
}

func (b *BlobStore) ensureContainer() error {
	ctx := context.Background()
	_, err := b.client.CreateContainer(ctx, b.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", b.containerName)
	} else {
		logrus.Infof("Created container %s", b.containerName)
	}
	return nil
}

func (b *BlobStore) Load(ctx context.Context) (models.Settings, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loadLocked(ctx)
}

func (b *BlobStore) loadLocked(ctx context.Context) (models.Settings, error) {
	resp, err := b.client.DownloadStream(ctx, b.containerName, blobName, nil)
	if err != nil {
		if strings.Contains(err.Error(), "BlobNotFound") {
			logrus.Debug("No settings blob yet, using defaults")
			return models.DefaultSettings(), nil
		}
		return models.Settings{}, &StoreError{Op: "load", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Settings{}, &StoreError{Op: "load", Err: err}
	}
	var s models.Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return models.Settings{}, &StoreError{Op: "load", Err: err}
	}
	s.Normalize()
	return s, nil
}

func (b *BlobStore) Save(ctx context.Context, s models.Settings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveLocked(ctx, s)
}

func (b *BlobStore) saveLocked(ctx context.Context, s models.Settings) error {
	s.Normalize()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	_, err = b.client.UploadStream(ctx, b.containerName, blobName, bytes.NewReader(data), nil)
	if err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}

func (b *BlobStore) AddStats(ctx context.Context, delta models.Stats) (models.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := b.loadLocked(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	s.Stats = s.Stats.Add(delta)
	if err := b.saveLocked(ctx, s); err != nil {
		return models.Stats{}, err
	}
	return s.Stats, nil
}
