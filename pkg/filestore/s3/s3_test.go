// Copyright PaperSynth Authors
// SPDX-License-Identifier: Apache-2.0

package s3_test

import (
	"context"
	"os"
	"testing"

	"github.com/MerLin027/PaperSynth/pkg/filestore"
	"github.com/MerLin027/PaperSynth/pkg/filestore/cachetest"
	fss3 "github.com/MerLin027/PaperSynth/pkg/filestore/s3"
)

func TestS3Conformance(t *testing.T) {
	bucket := os.Getenv("ASSET_CACHE_S3_BUCKET")
	endpoint := os.Getenv("ASSET_CACHE_S3_ENDPOINT")
	if bucket == "" || endpoint == "" {
		t.Skip("Skipping S3 conformance tests: ASSET_CACHE_S3_BUCKET and ASSET_CACHE_S3_ENDPOINT must be set (e.g. with MinIO)")
	}

	region := os.Getenv("ASSET_CACHE_S3_REGION")
	if region == "" {
		region = "us-east-1"
	}

	cachetest.RunConformanceTests(t, func(t *testing.T) filestore.Cache {
		cache, err := fss3.New(context.Background(), fss3.Options{
			Bucket:    bucket,
			Region:    region,
			Prefix:    "test-" + t.Name() + "/",
			Endpoint:  endpoint,
			AccessKey: os.Getenv("ASSET_CACHE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("ASSET_CACHE_S3_SECRET_KEY"),
		})
		if err != nil {
			t.Fatalf("s3.New: %v", err)
		}
		return cache
	})
}
