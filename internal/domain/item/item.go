package item

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/snipdex/internal/domain"
)

// MaxTextSize is the maximum snippet text size in bytes.
const MaxTextSize = 16384 // 16KB

// Domain is a storage partition an item lives in.
type Domain string

// Item domains.
const (
	// Local is the roomy device-local domain.
	Local Domain = "local"
	// Sync is the small-quota domain replicated across devices.
	Sync Domain = "sync"
)

// Domains lists every item domain in display order.
var Domains = []Domain{Local, Sync}

// IsValid checks if the domain is one of the supported values.
func (d Domain) IsValid() bool {
	return d == Local || d == Sync
}

// ParseDomain converts a string into a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("unknown domain %q: %w", s, domain.ErrInvalidInput)
	}
	return d, nil
}

// Item is a stored snippet (immutable value object).
type Item struct {
	id        string
	text      string
	domain    Domain
	createdAt time.Time
	sourceURL string
	title     string
}

// New validates and creates an Item with a fresh id.
// Text must be non-empty after trimming and at most MaxTextSize bytes.
func New(text string, d Domain, sourceURL, title string, now time.Time) (Item, error) {
	if strings.TrimSpace(text) == "" {
		return Item{}, fmt.Errorf("snippet text is required: %w", domain.ErrInvalidInput)
	}
	if len(text) > MaxTextSize {
		return Item{}, fmt.Errorf("snippet text too large (max %d bytes): %w", MaxTextSize, domain.ErrInvalidInput)
	}
	if !d.IsValid() {
		return Item{}, fmt.Errorf("unknown domain %q: %w", d, domain.ErrInvalidInput)
	}
	return Item{
		id:        NewID(),
		text:      text,
		domain:    d,
		createdAt: now.UTC(),
		sourceURL: sourceURL,
		title:     title,
	}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(id, text string, d Domain, createdAt time.Time, sourceURL, title string) Item {
	return Item{id: id, text: text, domain: d, createdAt: createdAt, sourceURL: sourceURL, title: title}
}

// NewID returns a fresh item identifier.
func NewID() string {
	return uuid.NewString()
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Text returns the snippet text.
func (i *Item) Text() string { return i.text }

// Domain returns the owning domain.
func (i *Item) Domain() Domain { return i.domain }

// CreatedAt returns the capture time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// SourceURL returns the page the snippet was captured from, if known.
func (i *Item) SourceURL() string { return i.sourceURL }

// Title returns the page title the snippet was captured from, if known.
func (i *Item) Title() string { return i.title }

// WithDomain returns a copy owned by d.
func (i *Item) WithDomain(d Domain) Item {
	c := *i
	c.domain = d
	return c
}

// IDs returns the ids of items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for n := range items {
		ids[n] = items[n].id
	}
	return ids
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []Item, id string) int {
	for n := range items {
		if items[n].id == id {
			return n
		}
	}
	return -1
}
