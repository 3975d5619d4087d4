package source

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	zerrors "github.com/zcc-dev/zcc/internal/errors"
)

// S3API is the subset of the S3 client used by s3 sources.
type S3API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// s3Backend reads packs stored under bucket/prefix/<pack>/...
type s3Backend struct {
	client S3API
	bucket string
	prefix string
}

func newS3Backend(cfg Config, opts Options) (*s3Backend, error) {
	bucket := cfg.String("bucket", "")
	if bucket == "" {
		return nil, zerrors.New(zerrors.CodeValidation).
			WithDetailf("s3 source %q requires a bucket", cfg.ID)
	}
	client := opts.S3Client
	if client == nil {
		client = newS3Client(cfg)
	}
	prefix := strings.Trim(cfg.String("prefix", ""), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &s3Backend{client: client, bucket: bucket, prefix: prefix}, nil
}

// newS3Client builds a client from the source config. Credentials come from
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY when set; otherwise requests are
// anonymous, which suits public pack buckets.
func newS3Client(cfg Config) *s3.Client {
	o := s3.Options{
		Region:      cfg.String("region", "us-east-1"),
		Credentials: aws.AnonymousCredentials{},
	}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		session := os.Getenv("AWS_SESSION_TOKEN")
		o.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: id, SecretAccessKey: secret, SessionToken: session, Source: "zcc-env"}, nil
		}))
	}
	if ep := cfg.String("endpoint", ""); ep != "" {
		o.BaseEndpoint = aws.String(ep)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

func (b *s3Backend) read(ctx context.Context, p string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + p),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, &notFoundError{key: b.prefix + p, err: err}
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(io.LimitReader(out.Body, maxBodySize))
}

func (b *s3Backend) list(ctx context.Context) ([]string, error) {
	var names []string
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(b.prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), b.prefix), "/")
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (b *s3Backend) location(p string) string {
	return "s3://" + path.Join(b.bucket, b.prefix+p)
}

type notFoundError struct {
	key string
	err error
}

func (e *notFoundError) Error() string { return "s3: no such key " + e.key + ": " + e.err.Error() }
func (e *notFoundError) Unwrap() error { return fs.ErrNotExist }
