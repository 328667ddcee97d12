// Package gcs mirrors ledger documents into a Cloud Storage bucket as one
// JSON object per document at users/{uid}/transactions/{id}.json.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"

	"dailyledger/internal/log"
	"dailyledger/internal/remote"
)

type Client struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
	logger *log.Logger
}

var _ remote.DocumentWriter = (*Client)(nil)

// New uses Application Default Credentials. prefix is prepended to every
// object name and may be empty.
func New(ctx context.Context, bucket, prefix string, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("missing bucket name")
	}
	if logger == nil {
		logger = log.Discard()
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: strings.Trim(prefix, "/"),
		logger: logger.WithComponent(log.ComponentGCS),
	}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Put writes the document, overwriting an earlier copy of the same key.
func (c *Client) Put(ctx context.Context, doc remote.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.bucket == nil {
		return errors.New("storage client not initialized")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	name := objectName(c.prefix, doc)
	w := c.bucket.Object(name).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = map[string]string{"userId": doc.UserID, "type": doc.Type}

	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}

	c.logger.DebugContext(ctx, "Document uploaded", "object", name, log.FieldTransactionID, doc.ID)
	return nil
}

func objectName(prefix string, doc remote.Document) string {
	name := doc.Key() + ".json"
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
