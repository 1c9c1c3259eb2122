package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"strings"
)

// S3Uploader copies backups to a bucket with the aws CLI. Credentials come
// from the CLI's usual environment and profile lookup.
type S3Uploader struct {
	bucket   string
	prefix   string
	endpoint string
	region   string
}

// NewS3Uploader parses bucketURL (s3://bucket/optional/prefix) and checks
// that the aws CLI is installed.
func NewS3Uploader(bucketURL, endpoint, region string) (*S3Uploader, error) {
	bucket, prefix, err := parseBucketURL(bucketURL)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath("aws"); err != nil {
		return nil, errors.New("s3: aws cli not found in PATH")
	}
	if strings.TrimSpace(region) == "" {
		region = "us-east-1"
	}
	return &S3Uploader{
		bucket:   bucket,
		prefix:   prefix,
		endpoint: strings.TrimSpace(endpoint),
		region:   region,
	}, nil
}

// UploadFile copies localPath to the bucket under its base name.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) error {
	args := u.args(localPath)
	out, err := exec.CommandContext(ctx, "aws", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("aws s3 cp: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (u *S3Uploader) args(localPath string) []string {
	key := path.Base(localPath)
	if u.prefix != "" {
		key = path.Join(u.prefix, key)
	}
	args := []string{"s3", "cp", localPath, "s3://" + u.bucket + "/" + key,
		"--region", u.region, "--only-show-errors"}
	if u.endpoint != "" {
		args = append(args, "--endpoint-url", u.endpoint)
	}
	return args
}

func parseBucketURL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("s3: parse bucket url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", errors.New("s3: bucket url must use s3:// scheme")
	}
	if u.Host == "" {
		return "", "", errors.New("s3: bucket url missing bucket name")
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
