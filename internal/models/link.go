package models

import (
	"time"

	"github.com/google/uuid"
)

// Namespace identifies which link collection a short code lives in.
type Namespace string

const (
	NamespaceRegistered Namespace = "registered"
	NamespaceAnonymous  Namespace = "anonymous"
)

// ResolutionOrder is the fixed order in which namespaces are searched.
var ResolutionOrder = []Namespace{NamespaceRegistered, NamespaceAnonymous}

func (n Namespace) Valid() bool {
	return n == NamespaceRegistered || n == NamespaceAnonymous
}

// LinkRef points at a link in exactly one namespace.
type LinkRef struct {
	Namespace Namespace `json:"namespace"`
	ID        uuid.UUID `json:"id"`
}

type Link struct {
	ID          uuid.UUID `json:"id"`
	Namespace   Namespace `json:"namespace"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CustomAlias *string   `json:"custom_alias,omitempty"`
	Owner       string    `json:"owner"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

func (l *Link) Ref() LinkRef {
	return LinkRef{Namespace: l.Namespace, ID: l.ID}
}

// ResolvedLink is what the redirect path needs from a link. It is also the cached form.
type ResolvedLink struct {
	Ref         LinkRef `json:"ref"`
	OriginalURL string  `json:"original_url"`
}

type CreateLinkInput struct {
	OriginalURL string  `json:"original_url"`
	CustomAlias *string `json:"custom_alias,omitempty"`
}
