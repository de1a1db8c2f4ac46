// cmd/estatectl/review.go
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/javajoker/estate-backend/internal/models"
	"github.com/javajoker/estate-backend/internal/services"
)

var (
	reviewFeedback string
	reviewAdmin    string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Approve or reject a pending early-access application",
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <userId>",
	Short: "Approve an application, consuming one quota slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], services.ReviewActionApprove)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <userId>",
	Short: "Reject an application and cancel its subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], services.ReviewActionReject)
	},
}

func runReview(cmd *cobra.Command, rawUserID, action string) error {
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", rawUserID, err)
	}

	adminID, err := resolveAdmin(reviewAdmin)
	if err != nil {
		return err
	}

	var feedback *string
	if strings.TrimSpace(reviewFeedback) != "" {
		feedback = &reviewFeedback
	}

	// Emails are sent below, in the foreground, so the process does not exit
	// before they go out.
	approvals := services.NewApprovalService(db, cfg, services.NewPaymentService(cfg), nil)
	result, err := approvals.Review(cmd.Context(), userID, action, feedback, adminID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "user %s: status=%s role=%s\n", result.UserID, result.Status, result.Role)
	for _, extErr := range result.ExternalErrors {
		fmt.Fprintf(out, "warning: %v\n", extErr)
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		logrus.WithError(err).Warn("Could not load applicant for notification")
		return nil
	}

	notifications := services.NewNotificationService(db, cfg)
	if result.Status == models.MembershipStatusActive {
		err = notifications.SendEarlyAccessApproved(&user, result.Role, feedback)
	} else {
		err = notifications.SendEarlyAccessRejected(&user, feedback)
	}
	if err != nil {
		fmt.Fprintf(out, "warning: notification email failed: %v\n", err)
	}
	return nil
}

// resolveAdmin finds the reviewing admin by email, or the oldest admin
// account when email is empty.
func resolveAdmin(email string) (uuid.UUID, error) {
	query := db.Where("role = ?", models.UserRoleAdmin)
	if email != "" {
		query = query.Where("email = ?", strings.ToLower(email))
	}

	var admin models.User
	if err := query.Order("created_at ASC").First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("no admin account found (--admin %q)", email)
		}
		return uuid.Nil, fmt.Errorf("database error: %w", err)
	}
	return admin.ID, nil
}
