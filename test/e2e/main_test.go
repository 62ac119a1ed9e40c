//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

const (
	localstackImage = "localstack/localstack:3.0.2"
	bucket          = "factorytwin-e2e"
)

var (
	binPath     string
	endpointURL string
	s3Client    *s3.Client
)

// TestMain builds the binary once and starts one LocalStack container for
// every test in the package.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "factorytwin-e2e-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(dir)

	binPath = filepath.Join(dir, "factorytwin")
	build := exec.Command("go", "build", "-o", binPath, "./cmd/factorytwin")
	build.Dir = "../.."
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Printf("Build failed: %s\n", out)
		return 1
	}

	container, err := localstack.Run(ctx, localstackImage, testcontainers.WithEnv(map[string]string{"SERVICES": "s3"}))
	if err != nil {
		fmt.Printf("Failed to start LocalStack: %v\n", err)
		return 1
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			fmt.Printf("Failed to terminate LocalStack: %v\n", err)
		}
	}()

	endpointURL, err = container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		fmt.Printf("Failed to resolve LocalStack endpoint: %v\n", err)
		return 1
	}
	fmt.Printf("LocalStack mapped to %s\n", endpointURL)

	os.Setenv("AWS_ACCESS_KEY_ID", "test")
	os.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	os.Setenv("AWS_REGION", "us-east-1")

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("us-east-1"))
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		return 1
	}
	s3Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	})
	if _, err := s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		fmt.Printf("Failed to create bucket: %v\n", err)
		return 1
	}

	return m.Run()
}
