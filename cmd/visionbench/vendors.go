package main

import (
	"context"
	"time"

	"visionbench/internal/domain"
	"visionbench/internal/manifest"
	"visionbench/internal/storage"
	"visionbench/internal/storage/azblob"
	"visionbench/internal/storage/gcs"
	"visionbench/internal/storage/memory"
	"visionbench/internal/storage/s3"
	"visionbench/internal/vendors/aws"
	"visionbench/internal/vendors/azure"
	"visionbench/internal/vendors/huggingface"
	"visionbench/internal/vendors/nyckel"
	"visionbench/internal/vendors/vertex"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func newNyckel(ctx context.Context) (*nyckel.Client, error) {
	ny := cfg.Vendors.Nyckel
	return nyckel.NewClient(ctx, nyckel.Config{
		BaseURL:           ny.BaseURL,
		TokenURL:          ny.TokenURL,
		ClientIDEnv:       ny.ClientIDEnv,
		ClientSecretEnv:   ny.ClientSecretEnv,
		Timeout:           secs(ny.TimeoutSecs),
		UploadWorkers:     ny.UploadWorkers,
		RequestsPerSecond: ny.RequestsPerSecond,
	}, logger)
}

// newClassifier builds the client for vendor. endpoint is the model id (hg),
// function id (nyckel), project version ARN (aws), endpoint id (vertex) or
// scoring URI (azure).
func newClassifier(ctx context.Context, vendor, endpoint string) (domain.Classifier, error) {
	switch vendor {
	case manifest.HuggingFace:
		hg := cfg.Vendors.HuggingFace
		return huggingface.NewClient(huggingface.Config{
			BaseURL:           hg.BaseURL,
			APIKeyEnv:         hg.APIKeyEnv,
			Model:             endpoint,
			Timeout:           secs(hg.TimeoutSecs),
			RequestsPerSecond: hg.RequestsPerSecond,
		})
	case manifest.Nyckel:
		client, err := newNyckel(ctx)
		if err != nil {
			return nil, err
		}
		return client.Classifier(endpoint), nil
	case manifest.AWS:
		return aws.NewClient(aws.Config{Region: cfg.Vendors.AWS.Region, ProjectVersionARN: endpoint})
	case manifest.Vertex:
		vx := cfg.Vendors.Vertex
		return vertex.NewClient(ctx, vertex.Config{
			Project:         vx.Project,
			Region:          vx.Region,
			EndpointID:      endpoint,
			CredentialsFile: vx.CredentialsFile,
			Timeout:         secs(vx.TimeoutSecs),
		})
	case manifest.Azure:
		az := cfg.Vendors.Azure
		return azure.NewClient(azure.Config{
			ScoringURI: endpoint,
			KeyEnv:     az.EndpointKeyEnv,
			Timeout:    secs(az.TimeoutSecs),
		})
	default:
		return nil, domain.Configf("unknown vendor %q", vendor)
	}
}

// newUploader builds the uploader for vendor. With --dry-run every
// bucket-backed vendor writes to memory.
func newUploader(ctx context.Context, vendor, dataset, fnID string) (domain.Uploader, error) {
	ds, err := cfg.Dataset(dataset)
	if err != nil {
		return nil, err
	}
	switch vendor {
	case manifest.Nyckel:
		if fnID == "" {
			return nil, domain.Configf("nyckel upload needs a function id; run create first")
		}
		client, err := newNyckel(ctx)
		if err != nil {
			return nil, err
		}
		return client.Uploader(fnID), nil
	case manifest.HuggingFace:
		return nil, domain.Configf("hg datasets are published through the hub, not uploaded")
	}

	var (
		bucket domain.Bucket
		key    storage.KeyFunc
	)
	switch vendor {
	case manifest.AWS:
		key = storage.LabelDirKey
		if !dryRun {
			bucket, err = s3.NewBucket(s3.Config{Bucket: ds.S3Bucket, Region: cfg.Vendors.AWS.Region})
		}
	case manifest.Vertex:
		key = storage.UploadDirKey
		if !dryRun {
			bucket, err = gcs.NewBucket(ctx, gcs.Config{
				Bucket:          ds.VertexBucket,
				CredentialsFile: cfg.Vendors.Vertex.CredentialsFile,
				Timeout:         secs(cfg.Vendors.Vertex.TimeoutSecs),
			})
		}
	case manifest.Azure:
		key = storage.UploadDirKey
		if !dryRun {
			bucket, err = azblob.NewBucket(azblob.Config{
				Container:  ds.AzureContainer,
				AccountEnv: cfg.Vendors.Azure.StorageAccountEnv,
				KeyEnv:     cfg.Vendors.Azure.StorageKeyEnv,
			})
		}
	default:
		return nil, domain.Configf("unknown vendor %q", vendor)
	}
	if err != nil {
		return nil, err
	}
	if dryRun {
		bucket = memory.NewBucket()
	}
	return storage.NewUploader(vendor, bucket, key, logger), nil
}
