package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	s3Prefix = "estimates/"
	s3Suffix = ".json"

	metaName       = "estimate-name"
	metaSavedAt    = "saved-at"
	metaGrandTotal = "grand-total"
)

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds connection settings for an S3 or MinIO bucket.
type S3Config struct {
	Bucket    string
	Region    string // default us-east-1
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// S3 stores each record as one JSON object. Name, save time and grand total
// travel as object metadata so listing needs only HEAD requests.
type S3 struct {
	client objectAPI
	bucket string
}

// OpenS3 builds a client from the default credential chain.
func OpenS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3(client, cfg.Bucket), nil
}

func newS3(client objectAPI, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

func (s *S3) Driver() Driver { return DriverS3 }

func objectKey(id string) string { return s3Prefix + id + s3Suffix }

func idFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, s3Prefix) || !strings.HasSuffix(key, s3Suffix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(key, s3Prefix), s3Suffix), true
}

func (s *S3) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("put estimate: empty id")
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(rec.ID)),
		Body:        bytes.NewReader(rec.Payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			metaName:       rec.Name,
			metaSavedAt:    strconv.FormatInt(savedAtMillis(rec.SavedAt), 10),
			metaGrandTotal: strconv.FormatFloat(rec.GrandTotal, 'g', -1, 64),
		},
	})
	if err != nil {
		return fmt.Errorf("put estimate object %s: %w", rec.ID, err)
	}
	return nil
}

func (s *S3) Get(ctx context.Context, id string) (Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, fmt.Errorf("get estimate object %s: %w", id, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return Record{}, fmt.Errorf("read estimate object %s: %w", id, err)
	}
	rec := recordFromMetadata(id, out.Metadata)
	rec.Payload = payload
	return rec, nil
}

func (s *S3) List(ctx context.Context) ([]Summary, error) {
	out := []Summary{}
	var token *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s3Prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list estimate objects: %w", err)
		}
		for _, obj := range page.Contents {
			id, ok := idFromKey(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				// Deleted between list and head.
				if isS3NotFound(err) {
					continue
				}
				return nil, fmt.Errorf("head estimate object %s: %w", id, err)
			}
			out = append(out, recordFromMetadata(id, head.Metadata).summary())
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		break
	}
	sortSummaries(out)
	return out, nil
}

func (s *S3) Delete(ctx context.Context, id string) error {
	key := aws.String(objectKey(id))
	// DeleteObject succeeds for missing keys, so check first.
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("head estimate object %s: %w", id, err)
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: key}); err != nil {
		return fmt.Errorf("delete estimate object %s: %w", id, err)
	}
	return nil
}

func (s *S3) Close() error { return nil }

func recordFromMetadata(id string, md map[string]string) Record {
	return recordFromFields(id, md[metaName], md[metaSavedAt], md[metaGrandTotal])
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
