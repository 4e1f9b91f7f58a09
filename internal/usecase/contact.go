package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-contact-backend/internal/domain"
	"go-contact-backend/pkg/email"
	"go-contact-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type contactUsecase struct {
	mailer     email.Mailer
	validate   *validator.Validate
	sender     email.Address
	ownerEmail string
}

// NewContactUsecase creates a new contact usecase
func NewContactUsecase(mailer email.Mailer, validate *validator.Validate, sender email.Address, ownerEmail string) domain.ContactUsecase {
	return &contactUsecase{
		mailer:     mailer,
		validate:   validate,
		sender:     sender,
		ownerEmail: ownerEmail,
	}
}

// Submit validates the request and sends the owner notification followed by
// the acknowledgment. Nothing is sent when validation fails.
func (uc *contactUsecase) Submit(ctx context.Context, sub *domain.ContactSubmission) error {
	if err := uc.validateSubmission(sub); err != nil {
		return err
	}

	ownerBody, err := email.RenderOwnerNotification(email.ContactEmailData{
		Name:    sub.Name,
		Email:   sub.Email,
		Phone:   string(sub.Phone),
		Service: sub.Service,
		Message: sub.Message,
	})
	if err != nil {
		return err
	}

	// Owner first: the acknowledgment is never sent if the owner was not told.
	if err := uc.mailer.Send(ctx, email.Message{
		Kind:     email.KindOwner,
		From:     uc.sender,
		To:       uc.ownerEmail,
		ReplyTo:  sub.Email,
		Subject:  email.OwnerSubject(sub.Name),
		HTMLBody: ownerBody,
	}); err != nil {
		return err
	}

	ackBody, err := email.RenderAcknowledgment(email.AcknowledgmentData{
		Name:       sub.Name,
		SenderName: uc.sender.Name,
	})
	if err != nil {
		return fmt.Errorf("owner notified, acknowledgment not sent: %w", err)
	}

	if err := uc.mailer.Send(ctx, email.Message{
		Kind:     email.KindAcknowledgment,
		From:     uc.sender,
		To:       sub.Email,
		Subject:  email.AcknowledgmentSubject,
		HTMLBody: ackBody,
	}); err != nil {
		return fmt.Errorf("owner notified, acknowledgment not sent: %w", err)
	}

	return nil
}

// validateSubmission checks presence before email shape.
func (uc *contactUsecase) validateSubmission(sub *domain.ContactSubmission) error {
	err := uc.validate.Struct(sub)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate contact submission: %w", err)
	}

	if missing := validation.MissingFields(err); len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrRequiredFieldsMissing, strings.Join(missing, ", "))
	}
	if validation.HasTag(err, validation.TagContactEmail) {
		return domain.ErrInvalidEmail
	}
	return fmt.Errorf("failed to validate contact submission: %w", err)
}
