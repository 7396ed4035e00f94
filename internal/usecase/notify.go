package usecase

import (
	"context"
	"fmt"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

// CollectAndNotify runs a collection and tells a recipient when it is ready.
type CollectAndNotify struct {
	collect   *CollectArticles
	notifier  ports.Notifier
	recipient string

	notifyErr error
}

// NewCollectAndNotify prepares a collection whose completion is announced to recipient.
func NewCollectAndNotify(deps CollectorDeps, req CollectRequest, notifier ports.Notifier, recipient string) *CollectAndNotify {
	collect := NewCollectArticles(deps, req)
	collect.collectorType = CollectorCollectAndNotify
	collect.logger = collect.logger.With("recipient", recipient)
	return &CollectAndNotify{collect: collect, notifier: notifier, recipient: recipient}
}

// Run performs the collection, then notifies. Notification failures never
// fail the run; read them back with NotificationErr.
func (n *CollectAndNotify) Run(ctx context.Context) ([]domain.Article, error) {
	articles, err := n.collect.Run(ctx)
	if err != nil {
		return articles, err
	}

	if n.notifier == nil {
		return articles, nil
	}
	if err := n.notifier.Notify(ctx, n.recipient, ReadyMessage(n.collect.Scope(), len(articles))); err != nil {
		n.notifyErr = err
		n.collect.logger.Warn("notification failed", "error", err)
	}
	return articles, nil
}

// Report returns the underlying run report.
func (n *CollectAndNotify) Report() (domain.RunReport, bool) {
	return n.collect.Report()
}

// NotificationErr returns the error of the last notification attempt, if any.
func (n *CollectAndNotify) NotificationErr() error {
	return n.notifyErr
}

// ReadyMessage is the text sent once a requested collection is available.
func ReadyMessage(scope domain.Scope, count int) string {
	noun := "articles"
	if count == 1 {
		noun = "article"
	}
	return fmt.Sprintf("Your request for %s is ready: %d %s", scope, count, noun)
}
