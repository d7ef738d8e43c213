package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3互換オブジェクトストレージの接続設定。
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // MinIOなどS3互換ストレージのエンドポイント。空の場合はAWS
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // 参照パスの先頭に付けるURL。空の場合は "/<bucket>"
	KeyPrefix     string
}

// PutObjectAPI はS3StoreがS3クライアントに求める操作。
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store はS3互換オブジェクトストレージに画像を保存する。
type S3Store struct {
	client    PutObjectAPI
	bucket    string
	keyPrefix string
	baseURL   string
	now       func() time.Time
}

// NewS3Client は静的な認証情報でS3クライアントを生成する。
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store はS3Storeを生成する。
func NewS3Store(client PutObjectAPI, cfg S3Config) *S3Store {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = "/" + cfg.Bucket
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// Save は画像をオブジェクトとしてアップロードし、参照パスを返す。
func (s *S3Store) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	name, err := ObjectName(contentType, s.now())
	if err != nil {
		return "", err
	}

	key := name
	if s.keyPrefix != "" {
		key = s.keyPrefix + "/" + name
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media object: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

var _ Store = (*S3Store)(nil)
