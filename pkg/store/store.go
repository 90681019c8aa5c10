package store

import (
	"context"
	"errors"
	"time"

	"ucrelay/pkg/extract"
)

// ErrNotFound is returned when no document matches a lookup.
var ErrNotFound = errors.New("store: document not found")

// Document is the persisted form of one counterpart reply. Text holds
// the raw message only while nothing structured was extracted from it;
// once a structured record exists the raw text is nulled out.
type Document struct {
	Seq     int64                  `json:"message_id"`
	At      time.Time              `json:"date"`
	Text    *string                `json:"text"`
	Topup   *extract.TopupResult   `json:"topupResult,omitempty"`
	Account *extract.AccountStatus `json:"accountStatus,omitempty"`
	Prices  *extract.PriceList     `json:"priceList,omitempty"`
}

// NewDocument builds a reply document from raw text and an optional
// extracted record.
func NewDocument(seq int64, at time.Time, text string, record *extract.Record) Document {
	doc := Document{Seq: seq, At: at}

	if record == nil {
		doc.Text = &text
		return doc
	}

	doc.Topup = record.Topup
	doc.Account = record.Account
	doc.Prices = record.Prices

	return doc
}

// HasRecord reports whether the document carries any structured fields.
func (d Document) HasRecord() bool {
	return d.Topup != nil || d.Account != nil || d.Prices != nil
}

// merge overlays an incoming document on top of an existing one for the
// same sequence. Structured fields overwrite; raw text survives only
// while neither version carries a record.
func merge(existing, incoming Document) Document {
	merged := existing
	merged.At = incoming.At

	if incoming.Topup != nil {
		merged.Topup = incoming.Topup
	}
	if incoming.Account != nil {
		merged.Account = incoming.Account
	}
	if incoming.Prices != nil {
		merged.Prices = incoming.Prices
	}

	if merged.HasRecord() {
		merged.Text = nil
	} else if incoming.Text != nil {
		merged.Text = incoming.Text
	}

	return merged
}

// Store persists reply documents keyed by transport sequence.
type Store interface {
	// SaveReply upserts a document by sequence, merging structured
	// fields over any prior version.
	SaveReply(ctx context.Context, doc Document) error

	// GetReply fetches the document for a sequence, or ErrNotFound.
	GetReply(ctx context.Context, seq int64) (Document, error)

	// LatestTopupSince returns the most recent topup-bearing document
	// whose arrival is at or after cutoff, or ErrNotFound.
	LatestTopupSince(ctx context.Context, cutoff time.Time) (Document, error)
}
