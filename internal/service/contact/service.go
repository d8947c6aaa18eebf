package contact

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"portfolio-notify/internal/mail"
	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/metrics"
)

const ownerSubjectPrefix = "[Portfolio] "

//go:embed templates/confirmation.html
var confirmationTemplateRaw string

var confirmationTemplate = template.Must(template.New("confirmation").Parse(confirmationTemplateRaw))

type Config struct {
	OwnerAddress     string
	OwnerName        string
	SendConfirmation bool
	RequireName      bool
	AckSubject       string
}

type confirmationParams struct {
	Greeting      string
	Subject       string
	SenderAddress string
	OwnerName     string
}

// Service runs the contact intake saga: validate, notify the owner, then
// confirm to the sender. Steps run in order and each waits for the previous.
type Service struct {
	dispatcher mail.Dispatcher
	cfg        Config
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewService(dispatcher mail.Dispatcher, cfg Config, logger *zap.Logger) *Service {
	if cfg.AckSubject == "" {
		cfg.AckSubject = "Thanks for reaching out!"
	}
	return &Service{
		dispatcher: dispatcher,
		cfg:        cfg,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Submit never partially sends on invalid input; see Outcome for the
// partial-success case.
func (s *Service) Submit(ctx context.Context, sub model.ContactSubmission) Outcome {
	log := logger.WithTrace(ctx, s.logger).With(zap.String("from", sub.From))

	sub = normalize(sub)
	if err := s.Validate(sub); err != nil {
		log.Info("Contact submission rejected", zap.Error(err))
		return s.finish(Outcome{State: StateRejected, Err: err})
	}

	owner := model.NewPlainMessage(sub.From, s.cfg.OwnerAddress, ownerSubjectPrefix+sub.Subject, sub.Message).
		WithReplyTo(sub.From).
		WithKind(model.KindOwnerNotification)
	if err := s.dispatcher.Send(ctx, owner); err != nil {
		log.Error("Owner notification failed",
			zap.String("saga_state", string(StateNotifyFailed)),
			zap.String("reason", mail.ReasonOf(err)),
			zap.Error(err),
		)
		return s.finish(Outcome{State: StateNotifyFailed, Err: err})
	}

	if !s.cfg.SendConfirmation {
		log.Info("Contact submission delivered, confirmation disabled")
		return s.finish(Outcome{State: StateSucceeded, OwnerNotified: true, ConfirmationSkipped: true})
	}

	confirmation, err := s.buildConfirmation(sub)
	if err == nil {
		err = s.dispatcher.Send(ctx, confirmation)
	}
	if err != nil {
		log.Error("Sender confirmation failed after owner was notified",
			zap.String("saga_state", string(StateConfirmFailed)),
			zap.Bool("partial", true),
			zap.String("reason", mail.ReasonOf(err)),
			zap.Error(err),
		)
		return s.finish(Outcome{State: StateConfirmFailed, OwnerNotified: true, Err: err})
	}

	log.Info("Contact submission delivered")
	return s.finish(Outcome{State: StateSucceeded, OwnerNotified: true, ConfirmationSent: true})
}

// Validate checks required fields first, then the address shape.
func (s *Service) Validate(sub model.ContactSubmission) error {
	if sub.From == "" || sub.Subject == "" || sub.Message == "" {
		return ErrMissingFields
	}
	if s.cfg.RequireName && sub.Name == "" {
		return ErrMissingFields
	}
	if err := s.validate.Var(sub.From, "email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func (s *Service) buildConfirmation(sub model.ContactSubmission) (model.OutboundMessage, error) {
	greeting := "there"
	if sub.Name != "" {
		greeting = sub.Name
	}

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, confirmationParams{
		Greeting:      greeting,
		Subject:       sub.Subject,
		SenderAddress: sub.From,
		OwnerName:     s.cfg.OwnerName,
	})
	if err != nil {
		return model.OutboundMessage{}, fmt.Errorf("render confirmation: %w", err)
	}

	return model.NewHTMLMessage(s.cfg.OwnerAddress, sub.From, s.cfg.AckSubject, buf.String()).
		WithKind(model.KindConfirmation), nil
}

func (s *Service) finish(o Outcome) Outcome {
	metrics.IncrementContactOutcome(string(o.State))
	return o
}

func normalize(sub model.ContactSubmission) model.ContactSubmission {
	sub.From = strings.TrimSpace(sub.From)
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Subject = strings.TrimSpace(sub.Subject)
	if strings.TrimSpace(sub.Message) == "" {
		sub.Message = ""
	}
	return sub
}
