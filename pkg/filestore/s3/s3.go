// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3 provides an asset cache backed by S3 or an S3-compatible
// service such as MinIO.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
)

func init() {
	filestore.Register("s3", func(ctx context.Context, params map[string]string) (filestore.Cache, error) {
		return New(ctx, Options{
			Bucket:    params["bucket"],
			Region:    params["region"],
			Prefix:    params["prefix"],
			Endpoint:  params["endpoint"],
			AccessKey: params["access_key"],
			SecretKey: params["secret_key"],
		})
	})
}

// compile-time check
var _ filestore.Cache = (*Store)(nil)

// Options configures the S3 backend.
type Options struct {
	Bucket    string // required
	Region    string // e.g. "us-east-1"
	Prefix    string // key prefix, e.g. "assets/"
	Endpoint  string // custom endpoint for MinIO compatibility
	AccessKey string // static credentials; falls back to the default chain when empty
	SecretKey string
}

// assetMetadata is the JSON sidecar stored alongside each asset in S3.
type assetMetadata struct {
	RequestID   string    `json:"request_id"`
	Kind        string    `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Bytes       int64     `json:"bytes"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Store implements filestore.Cache backed by S3 (or MinIO).
//
// Object layout:
//
//	<prefix><request_id>/<kind>/content
//	<prefix><request_id>/<kind>/metadata.json
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates an S3-backed Store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 asset cache: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // required for MinIO
		})
	}

	return &Store{
		client: s3.NewFromConfig(cfg, s3Opts...),
		bucket: opts.Bucket,
		prefix: opts.Prefix,
	}, nil
}

func (s *Store) contentKey(requestID, kind string) string {
	return s.prefix + requestID + "/" + kind + "/content"
}

func (s *Store) metadataKey(requestID, kind string) string {
	return s.prefix + requestID + "/" + kind + "/metadata.json"
}

// Put uploads both the asset content and its metadata sidecar.
func (s *Store) Put(ctx context.Context, asset *filestore.Asset) error {
	metaBytes, err := json.Marshal(assetMetadata{
		RequestID:   asset.RequestID,
		Kind:        asset.Kind,
		Filename:    asset.Filename,
		ContentType: asset.ContentType,
		Bytes:       asset.Bytes,
		FetchedAt:   asset.FetchedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.contentKey(asset.RequestID, asset.Kind)),
		Body:        bytes.NewReader(asset.Content),
		ContentType: aws.String(asset.ContentType),
	})
	if err != nil {
		return fmt.Errorf("put content: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.metadataKey(asset.RequestID, asset.Kind)),
		Body:        bytes.NewReader(metaBytes),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put metadata: %w", err)
	}

	return nil
}

// Get downloads an asset and its metadata from S3.
func (s *Store) Get(ctx context.Context, requestID, kind string) (*filestore.Asset, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.metadataKey(requestID, kind)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("asset %s/%s: %w", requestID, kind, filestore.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	var meta assetMetadata
	decodeErr := json.NewDecoder(out.Body).Decode(&meta)
	out.Body.Close()
	if decodeErr != nil {
		return nil, fmt.Errorf("decode metadata for %s/%s: %w", requestID, kind, decodeErr)
	}

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.contentKey(requestID, kind)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("asset %s/%s: %w", requestID, kind, filestore.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("get content: %w", err)
	}
	defer obj.Body.Close()

	content, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read content body: %w", err)
	}

	return &filestore.Asset{
		RequestID:   meta.RequestID,
		Kind:        meta.Kind,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Bytes:       meta.Bytes,
		Content:     content,
		FetchedAt:   meta.FetchedAt,
	}, nil
}

// Delete removes every cached asset object of a request.
func (s *Store) Delete(ctx context.Context, requestID string) error {
	prefix := s.prefix + requestID + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return nil
}

// Close is a no-op for the S3 store.
func (s *Store) Close(_ context.Context) error {
	return nil
}

// isNotFound checks whether the error indicates a missing S3 object.
func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// Some S3-compatible services return a generic "NotFound" status.
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
