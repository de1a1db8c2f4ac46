// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/subscription"

	"github.com/javajoker/estate-backend/internal/config"
)

// SubscriptionCanceler cancels a member's billing subscription.
type SubscriptionCanceler interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

type PaymentService struct {
	config *config.Config
}

var errStripeNotConfigured = errors.New("stripe is not configured")

func NewPaymentService(config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		config: config,
	}
}

// CancelSubscription cancels immediately. A subscription Stripe no longer
// knows about is treated as already cancelled.
func (s *PaymentService) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if s.config.Payment.StripeSecretKey == "" {
		return errStripeNotConfigured
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := subscription.Cancel(subscriptionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			logrus.WithField("subscription_id", subscriptionID).Warn("Subscription not found at Stripe, nothing to cancel")
			return nil
		}
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"subscription_id": sub.ID,
		"status":          sub.Status,
	}).Info("Subscription cancelled")
	return nil
}
