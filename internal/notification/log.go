package notification

import (
	"context"

	"github.com/AlibekovAA/margarine/internal/common/logger"
)

// LogNotifier writes the verification link to the log instead of sending mail.
type LogNotifier struct {
	links *LinkBuilder
	log   *logger.Logger
}

func NewLogNotifier(links *LinkBuilder, log *logger.Logger) *LogNotifier {
	return &LogNotifier{links: links, log: log}
}

func (n *LogNotifier) SendVerification(ctx context.Context, address, token string) error {
	link, err := n.links.Build(token)
	if err != nil {
		return err
	}
	n.log.WithFields(ctx, logger.Fields{
		"action":  "verification_link",
		"address": address,
	}).Infof("verification link: %s", link)
	return nil
}
