package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"newsmill/config"
	"newsmill/logger"
)

// RemoteStore mirrors artifacts to and from an S3 bucket. It is the only
// integration point with remote storage: the engine's contract stays "read
// these local files / write these local files".
type RemoteStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewRemoteStore builds a store from the engine configuration. It returns
// nil (and no error) when no bucket is configured, which callers treat as
// "remote storage disabled".
func NewRemoteStore(ctx context.Context, cfg *config.Config) (*RemoteStore, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("publish: aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3PathStyle
	})
	return &RemoteStore{client: client, bucket: cfg.S3Bucket, prefix: cfg.S3Prefix}, nil
}

// UploadArtifacts copies each local file to the bucket under its base name.
func (r *RemoteStore) UploadArtifacts(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("publish: read artifact %s: %w", p, err)
		}

		key := r.key(filepath.Base(p))
		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = "binary/octet-stream"
		}

		_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(r.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return fmt.Errorf("publish: upload %s: %w", key, err)
		}
		logger.Log.WithFields(map[string]interface{}{
			"bucket": r.bucket,
			"key":    key,
		}).Info("artifact uploaded")
	}
	return nil
}

// DownloadLookups pulls the favicon and cover lookup files into dir before
// a catalog build. A lookup object that does not exist remotely is fine;
// the build just runs without that enrichment.
func (r *RemoteStore) DownloadLookups(ctx context.Context, dir string) error {
	for _, name := range []string{config.FaviconLookupFile, config.CoverInfoFile} {
		out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(r.key(name)),
		})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return fmt.Errorf("publish: download %s: %w", name, err)
		}

		local := filepath.Join(dir, name)
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(out.Body); err != nil {
			out.Body.Close()
			return fmt.Errorf("publish: read %s: %w", name, err)
		}
		out.Body.Close()

		if err := os.WriteFile(local, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("publish: store %s: %w", local, err)
		}
	}
	return nil
}

func (r *RemoteStore) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
