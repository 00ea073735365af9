package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Event subjects published by this service.
const (
	ImportStarted   = "pricelist.import.started"
	ImportCompleted = "pricelist.import.completed"
	ImportFailed    = "pricelist.import.failed"
	ThemeChanged    = "pricelist.theme.changed"
)

// ImportEvent is emitted at the start and end of a file-processing run.
type ImportEvent struct {
	EventType    string    `json:"eventType"`
	ImportRunID  string    `json:"importRunId,omitempty"`
	SupplierName string    `json:"supplierName,omitempty"`
	FileName     string    `json:"fileName"`
	OfferName    string    `json:"offerName,omitempty"`
	Created      int       `json:"created,omitempty"`
	Updated      int       `json:"updated,omitempty"`
	Errors       int       `json:"errors,omitempty"`
	Message      string    `json:"message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ThemeEvent is emitted after a successful theme or skin change.
type ThemeEvent struct {
	EventType string    `json:"eventType"`
	Theme     string    `json:"theme"`
	Skin      string    `json:"skin"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes service events to NATS. A publisher constructed
// without a URL drops events silently so the service runs unchanged when no
// broker is deployed.
type Publisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS. An empty URL returns a disabled publisher
// rather than an error.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	entry := logger.WithField("component", "events.publisher")
	if natsURL == "" {
		return &Publisher{logger: entry}, nil
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("pricelist-service"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, logger: entry}, nil
}

// PublishImportStarted announces a run that passed validation and began
// touching the database.
func (p *Publisher) PublishImportStarted(runID uuid.UUID, supplierName, fileName string) {
	p.publish(ImportStarted, &ImportEvent{
		EventType:    ImportStarted,
		ImportRunID:  runID.String(),
		SupplierName: supplierName,
		FileName:     fileName,
		Timestamp:    time.Now().UTC(),
	})
}

// PublishImportCompleted announces a committed run with its headline counts.
func (p *Publisher) PublishImportCompleted(runID uuid.UUID, supplierName, fileName, offerName string, created, updated, errorCount int) {
	p.publish(ImportCompleted, &ImportEvent{
		EventType:    ImportCompleted,
		ImportRunID:  runID.String(),
		SupplierName: supplierName,
		FileName:     fileName,
		OfferName:    offerName,
		Created:      created,
		Updated:      updated,
		Errors:       errorCount,
		Timestamp:    time.Now().UTC(),
	})
}

// PublishImportFailed announces a run that rolled back.
func (p *Publisher) PublishImportFailed(runID uuid.UUID, supplierName, fileName, message string) {
	p.publish(ImportFailed, &ImportEvent{
		EventType:    ImportFailed,
		ImportRunID:  runID.String(),
		SupplierName: supplierName,
		FileName:     fileName,
		Message:      message,
		Timestamp:    time.Now().UTC(),
	})
}

// PublishThemeChanged announces the newly active theme and skin.
func (p *Publisher) PublishThemeChanged(theme, skin string) {
	p.publish(ThemeChanged, &ThemeEvent{
		EventType: ThemeChanged,
		Theme:     theme,
		Skin:      skin,
		Timestamp: time.Now().UTC(),
	})
}

// publish serializes and sends one event. Failures are logged, never
// propagated: events are best-effort and must not fail the business
// operation that triggered them.
func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to marshal event")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("Failed to publish event")
	}
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p != nil && p.conn != nil && p.conn.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
