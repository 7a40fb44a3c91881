// Package aws issues short-lived PostgreSQL credentials through AWS RDS
// IAM authentication.
package aws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"

	"github.com/BuckysMyHero/openvsx/internal/config"
)

// Region sentinel that selects IMDS discovery instead of a fixed region.
const regionDetect = "detect"

// imdsTimeout bounds the metadata lookup; IMDS is link-local and answers
// fast or not at all.
const imdsTimeout = 2 * time.Second

// resolveRegion returns the region tokens are signed for. The sentinel
// value "detect" queries the EC2 instance metadata service.
func resolveRegion(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	region := cfg.DynamicAuth.AWSRDSIAM.Region
	switch region {
	case "":
		return "", fmt.Errorf("AWS RDS IAM region is not configured")
	case regionDetect:
		client := imds.New(imds.Options{
			HTTPClient: &http.Client{Timeout: imdsTimeout},
		})
		out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return "", fmt.Errorf("failed to get region from IMDS: %w", err)
		}
		return out.Region, nil
	default:
		return region, nil
	}
}

// signToken builds an RDS IAM auth token for user against the configured
// host and port. The token doubles as the connection password.
func signToken(ctx context.Context, cfg *config.DatabaseConfig, region, user string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.BuildAuthToken(ctx, endpoint, region, user, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build authentication token: %w", err)
	}
	return token, nil
}

// Token resolves one RDS IAM auth token for user.
func Token(ctx context.Context, cfg *config.DatabaseConfig, user string) (string, error) {
	region, err := resolveRegion(ctx, cfg)
	if err != nil {
		return "", err
	}
	return signToken(ctx, cfg, region, user)
}

// BeforeConnect returns a pgx hook that signs a fresh IAM token for every
// new connection. RDS tokens expire after 15 minutes, so the pool must not
// reuse a password captured at startup.
//
// The role attached to the workload must be allowed to connect as user.
func BeforeConnect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	user string,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	region, err := resolveRegion(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := signToken(ctx, cfg, region, user)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}, nil
}
