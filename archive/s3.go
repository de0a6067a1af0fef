// Package archive writes curated article records to S3 for downstream
// consumers outside the review database.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"curator/types"
)

// Archiver uploads article JSON to an S3 bucket. A nil Archiver is a
// valid no-op.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// Config holds S3 archiver configuration. Credentials come from the
// standard AWS config/credential chain.
type Config struct {
	Bucket string
	Region string
	Prefix string
}

// NewArchiver creates an S3-backed archiver.
func NewArchiver(ctx context.Context, cfg Config) (*Archiver, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	prefix := cfg.Prefix
	if prefix != "" {
		prefix += "/"
	}

	return &Archiver{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: prefix,
	}, nil
}

// ArchiveArticle uploads one article as JSON under
// <prefix><org>/<article-id>.json. The embedding vector is excluded
// from the payload by the Article JSON tags.
func (a *Archiver) ArchiveArticle(ctx context.Context, article *types.Article) error {
	if a == nil {
		return nil
	}

	payload, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}

	key := fmt.Sprintf("%s%s/%s.json", a.prefix, article.OrgID, article.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload article %s: %w", article.ID, err)
	}
	return nil
}
