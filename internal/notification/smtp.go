package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/AlibekovAA/margarine/internal/common/config"
	"github.com/AlibekovAA/margarine/internal/common/logger"
)

const verificationSubject = "Confirm your Margarine account"

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPNotifier struct {
	client mailSender
	from   string
	links  *LinkBuilder
	log    *logger.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, links *LinkBuilder, log *logger.Logger) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return newSMTPNotifier(client, cfg.From, links, log), nil
}

func newSMTPNotifier(client mailSender, from string, links *LinkBuilder, log *logger.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		client: client,
		from:   from,
		links:  links,
		log:    log,
	}
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, address, token string) error {
	link, err := n.links.Build(token)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(address); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(verificationSubject)
	msg.SetBodyString(mail.TypeTextPlain, verificationBody(link))

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification mail: %w", err)
	}

	n.log.WithFields(ctx, logger.Fields{
		"action":  "verification_mail_sent",
		"address": address,
	}).Debug("verification mail sent")
	return nil
}
