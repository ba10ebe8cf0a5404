// Package notify mails consolidation reports to the pool administrators.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog"

	"github.com/agentstation/speakerpool/pkg/errors"
	"github.com/agentstation/speakerpool/pkg/logging"
)

// Report is one message to the administrators.
type Report struct {
	Subject string
	Text    string
}

// Notifier delivers reports.
type Notifier interface {
	Notify(ctx context.Context, r Report) error
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region             string `mapstructure:"region"`
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	Endpoint           string `mapstructure:"endpoint"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// Config selects and configures a notifier.
type Config struct {
	Provider    string    `mapstructure:"provider"`
	To          []string  `mapstructure:"to"`
	FromAddress string    `mapstructure:"from"`
	FromName    string    `mapstructure:"from_name"`
	SES         SESConfig `mapstructure:"ses"`
}

// New creates a notifier from config. Provider "ses" uses AWS SES; "noop",
// empty or unknown providers log the report instead.
func New(cfg Config, logger *zerolog.Logger) (Notifier, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		if len(cfg.To) == 0 || cfg.FromAddress == "" {
			return nil, errors.NewConfigError("notify", "notify.to and notify.from are required for ses", nil)
		}
		if cfg.SES.InsecureSkipVerify {
			logger.Warn().Msg("TLS certificate verification is disabled for SES, use only in development")
		}
		awsCfg := aws.Config{
			Region: cfg.SES.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
			),
			HTTPClient: &http.Client{
				Transport: &http.Transport{
					TLSClientConfig: &tls.Config{
						InsecureSkipVerify: cfg.SES.InsecureSkipVerify, //nolint:gosec // opt-in for local SES emulators
						MinVersion:         tls.VersionTLS12,
					},
				},
			},
		}
		if cfg.SES.Endpoint != "" {
			awsCfg.BaseEndpoint = aws.String(cfg.SES.Endpoint)
		}
		return NewSES(ses.NewFromConfig(awsCfg), cfg, logger), nil
	case "", "noop":
		return &Noop{logger: logger}, nil
	default:
		logger.Warn().Str("provider", cfg.Provider).Msg("Unknown notify provider, using noop")
		return &Noop{logger: logger}, nil
	}
}

// sendEmailAPI is the part of the SES client the mailer uses.
type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SES mails reports through Amazon SES.
type SES struct {
	client sendEmailAPI
	to     []string
	source string
	logger *zerolog.Logger
}

// NewSES creates an SES notifier around client.
func NewSES(client sendEmailAPI, cfg Config, logger *zerolog.Logger) *SES {
	source := cfg.FromAddress
	if cfg.FromName != "" {
		source = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SES{client: client, to: cfg.To, source: source, logger: logger}
}

// Notify implements Notifier.
func (s *SES) Notify(ctx context.Context, r Report) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: s.to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(r.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(r.Text), Charset: aws.String("UTF-8")},
			},
		},
	}
	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return errors.WrapResource("send", "email", strings.Join(s.to, ","), err)
	}
	s.logger.Info().Str("message_id", aws.ToString(out.MessageId)).Msg("Consolidation report sent via SES")
	return nil
}

// Noop logs reports instead of sending them.
type Noop struct {
	logger *zerolog.Logger
}

// Notify implements Notifier.
func (n *Noop) Notify(_ context.Context, r Report) error {
	n.logger.Info().Str("subject", r.Subject).Msg("Report would be sent (noop)")
	return nil
}
