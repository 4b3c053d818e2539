package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/abimarket/auth-service/pkg/kafka"

	"github.com/abimarket/auth-service/internal/domain"
)

// Kafka topics for auth domain events. The notification service consumes
// the verification and reset topics and handles the actual email/SMS
// delivery; this service never talks to a mail provider directly.
const (
	TopicIdentityRegistered    = "marketplace.identity.registered"
	TopicVerificationRequested = "marketplace.identity.verification_requested"
	TopicPasswordResetRequest  = "marketplace.identity.password_reset_requested"
)

// AggregateTypeIdentity tags events whose aggregate is an identity.
const AggregateTypeIdentity = "identity"

// SourceAuthService identifies this service as the event origin.
const SourceAuthService = "auth-service"

// IdentityRegisteredData is the payload for an identity.registered event.
type IdentityRegisteredData struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	IsBusiness bool   `json:"is_business"`
}

// VerificationRequestedData is the payload for a verification_requested
// event. Token is the verification-purpose token the notification service
// embeds in the email link.
type VerificationRequestedData struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FirstName  string `json:"first_name"`
	Token      string `json:"token"`
}

// PasswordResetRequestedData is the payload for a password_reset_requested
// event.
type PasswordResetRequestedData struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	Token      string `json:"token"`
}

// Notifier is the outbound boundary to the notification collaborator.
// All sends are best-effort: implementations log failures and never
// propagate them into the calling flow.
type Notifier interface {
	SendVerification(ctx context.Context, identity *domain.Identity, token string)
	SendPasswordReset(ctx context.Context, identity *domain.Identity, token string)
	AnnounceRegistered(ctx context.Context, identity *domain.Identity)
}

// Producer publishes auth domain events to Kafka. It implements Notifier.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// SendVerification publishes a verification_requested event. Failures are
// logged and swallowed.
func (p *Producer) SendVerification(ctx context.Context, identity *domain.Identity, token string) {
	data := VerificationRequestedData{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Phone:      identity.Phone,
		FirstName:  identity.FirstName,
		Token:      token,
	}

	if err := p.publish(ctx, TopicVerificationRequested, identity.ID, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish verification_requested event",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}
}

// SendPasswordReset publishes a password_reset_requested event. Failures
// are logged and swallowed.
func (p *Producer) SendPasswordReset(ctx context.Context, identity *domain.Identity, token string) {
	data := PasswordResetRequestedData{
		IdentityID: identity.ID,
		Email:      identity.Email,
		FirstName:  identity.FirstName,
		Token:      token,
	}

	if err := p.publish(ctx, TopicPasswordResetRequest, identity.ID, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish password_reset_requested event",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}
}

// AnnounceRegistered publishes an identity.registered event. Failures are
// logged and swallowed.
func (p *Producer) AnnounceRegistered(ctx context.Context, identity *domain.Identity) {
	data := IdentityRegisteredData{
		ID:         identity.ID,
		Email:      identity.Email,
		Phone:      identity.Phone,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		IsBusiness: identity.IsBusiness,
	}

	if err := p.publish(ctx, TopicIdentityRegistered, identity.ID, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish identity.registered event",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeIdentity, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	return p.kafka.Publish(ctx, topic, event)
}
