package mail

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"portfolio-notify/internal/model"
	"portfolio-notify/pkg/config"
	"portfolio-notify/pkg/logger"
	"portfolio-notify/pkg/metrics"
)

// dialSender is the part of *gomail.Dialer the dispatcher needs.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPDispatcher sends through an authenticated SMTP account. A fresh
// connection is dialed for every message.
type SMTPDispatcher struct {
	dialer   dialSender
	host     string
	validate *validator.Validate
	logger   *zap.Logger
}

func NewSMTPDispatcher(cfg config.MailConfig, log *zap.Logger) *SMTPDispatcher {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.InsecureSkipVerify {
		log.Warn("InsecureSkipVerify is enabled for mail TLS connection")
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	log.Info("Initialized mail dispatcher",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("user", cfg.User),
	)

	return newSMTPDispatcher(d, cfg.Host, log)
}

func newSMTPDispatcher(d dialSender, host string, log *zap.Logger) *SMTPDispatcher {
	return &SMTPDispatcher{
		dialer:   d,
		host:     host,
		validate: validator.New(),
		logger:   log,
	}
}

// Send validates msg and makes exactly one delivery attempt.
func (s *SMTPDispatcher) Send(ctx context.Context, msg model.OutboundMessage) error {
	log := logger.WithTrace(ctx, s.logger)

	if err := s.validate.Struct(msg); err != nil {
		metrics.RecordMailRefused(msg.Kind, ReasonInvalidMessage)
		return &DispatchError{Reason: ReasonInvalidMessage, Err: err}
	}
	if err := ctx.Err(); err != nil {
		reason := ClassifyError(err)
		metrics.RecordMailRefused(msg.Kind, reason)
		return &DispatchError{Reason: reason, Err: err}
	}

	start := time.Now()
	err := s.dialer.DialAndSend(buildMessage(msg))
	took := time.Since(start)

	if err != nil {
		reason := ClassifyError(err)
		metrics.RecordMailDispatch(msg.Kind, "failed", reason, took)
		log.Error("Mail dispatch failed",
			zap.String("host", s.host),
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("reason", reason),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return &DispatchError{Reason: reason, Err: err}
	}

	metrics.RecordMailDispatch(msg.Kind, "success", "", took)
	log.Info("Mail dispatched",
		zap.String("host", s.host),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("took", took),
	)
	return nil
}

func buildMessage(msg model.OutboundMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody(msg.ContentType, msg.Body)
	return m
}
