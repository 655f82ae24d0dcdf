package http

import (
	"context"

	"github.com/saas-starter-api/internal/domain"
	"github.com/saas-starter-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/saas-starter-api/internal/infrastructure/jwt"
	s3infra "github.com/saas-starter-api/internal/infrastructure/s3"
	"github.com/saas-starter-api/internal/infrastructure/smtp"
	"github.com/saas-starter-api/internal/infrastructure/sns"
)

// SecretStore is the pending-credential store contract. Both the DynamoDB and
// Redis backends satisfy it; the router does not care which one is configured.
type SecretStore interface {
	Put(ctx context.Context, rec *domain.SecretRecord) error
	Get(ctx context.Context, identifier string) (*domain.SecretRecord, error)
	Delete(ctx context.Context, identifier string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	SessionRepo *dynamo.SessionRepo
	FileRepo    *dynamo.FileRepo
	SecretStore SecretStore
	S3Store     *s3infra.Store
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
