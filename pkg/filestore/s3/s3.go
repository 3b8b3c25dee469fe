package s3

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Store struct {
	key        string
	secret     string
	region     string
	bucket     string
	debug      bool
	client     *s3.Client
	httpClient *http.Client
}

// New returns an S3 backed artifact store.
func New(key, secret, region, bucket string, debug bool) (*Store, error) {
	s := &Store{
		key:    key,
		secret: secret,
		region: region,
		bucket: bucket,
		debug:  debug,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	if err := s.start(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) start(ctx context.Context) error {
	var provider aws.CredentialsProvider
	if s.key == "" && s.secret == "" {
		// Fall back to the EC2 instance role
		provider = ec2rolecreds.New()
	} else {
		provider = credentials.NewStaticCredentialsProvider(s.key, s.secret, "")
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(provider),
		config.WithRegion(s.region))
	if err != nil {
		return fmt.Errorf("s3: couldn't load aws config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg)

	input := &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if _, err := s.client.HeadBucket(ctx, input); err != nil {
		return fmt.Errorf("s3: couldn't head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// URL presigns a download link for the given object.
func (s *Store) URL(ctx context.Context, name string) (string, error) {
	client := s3.NewPresignClient(s.client)
	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}
	presigned, err := client.PresignGetObject(ctx, input, s3.WithPresignExpires(24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("s3: couldn't presign object %s: %w", name, err)
	}
	return presigned.URL, nil
}

func contentType(path string) (string, error) {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".mp3":
		return "audio/mpeg", nil
	case ".mp4":
		return "video/mp4", nil
	case ".json":
		return "application/json", nil
	default:
		return "", fmt.Errorf("s3: unknown content type for extension %s", filepath.Ext(path))
	}
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	ct, err := contentType(path)
	if err != nil {
		return err
	}
	reader, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't open file %s: %w", path, err)
	}
	defer reader.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        reader,
		ContentType: aws.String(ct),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3: couldn't put object %s: %w", name, err)
	}
	if s.debug {
		log.Println("s3: put object", name)
	}
	return nil
}

var backoff = []time.Duration{
	15 * time.Second,
	30 * time.Second,
	1 * time.Minute,
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	u, err := s.URL(ctx, name)
	if err != nil {
		return err
	}

	maxAttempts := 3
	attempts := 0
	var b []byte
	for {
		b, err = s.download(name, u)
		if err == nil {
			break
		}
		attempts++
		if attempts >= maxAttempts {
			return err
		}
		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		if s.debug {
			log.Printf("%v (retrying in %s)\n", err, wait)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("s3: couldn't write %s: %w", path, err)
	}
	return nil
}

func (s *Store) download(name, u string) ([]byte, error) {
	resp, err := s.httpClient.Get(u)
	if err != nil {
		return nil, fmt.Errorf("s3: couldn't download %s: %w", name, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: couldn't read %s: %w", name, err)
	}
	return b, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	}
	if _, err := s.client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("s3: couldn't delete object %s: %w", name, err)
	}
	return nil
}
