package runs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aristath/quantum-portfolio/internal/modules/pipeline"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Uploader is the part of the S3 transfer manager the archiver uses
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ArchiveConfig holds the S3 archive settings
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-compatible storage, path-style addressing
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// archiveDocument is the archived object: run metadata around the public
// report rendering
type archiveDocument struct {
	RunID       string           `json:"run_id"`
	Mode        pipeline.Mode    `json:"mode"`
	Assets      []string         `json:"assets"`
	GeneratedAt time.Time        `json:"generated_at"`
	Result      *pipeline.Report `json:"result"`
}

// Archiver uploads JSON reports to S3
type Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Archiver builds an archiver on the default AWS credential chain,
// or on static credentials when both keys are set.
func NewS3Archiver(ctx context.Context, cfg ArchiveConfig, log zerolog.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewArchiver(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// NewArchiver creates an archiver on an existing uploader
func NewArchiver(uploader Uploader, bucket, prefix string, log zerolog.Logger) *Archiver {
	return &Archiver{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("component", "archiver").Str("bucket", bucket).Logger(),
	}
}

// Key returns the object key of a report: <prefix>/YYYY/MM/DD/<run-id>.json
func (a *Archiver) Key(report *pipeline.Report) string {
	day := report.GeneratedAt.UTC().Format("2006/01/02")
	return path.Join(a.prefix, day, report.RunID+".json")
}

// Archive uploads the report with its run metadata and returns the key
func (a *Archiver) Archive(ctx context.Context, report *pipeline.Report) (string, error) {
	body, err := json.Marshal(archiveDocument{
		RunID:       report.RunID,
		Mode:        report.Mode,
		Assets:      report.Assets,
		GeneratedAt: report.GeneratedAt,
		Result:      report,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := a.Key(report)
	start := time.Now()

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id": report.RunID,
			"mode":   string(report.Mode),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	a.log.Debug().
		Str("key", key).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Report archived")

	return key, nil
}
