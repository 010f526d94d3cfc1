// Package domain defines the entities shared across every component of the
// ingestion and query pipelines: bots, their sources, the chunks derived
// from those sources, logged queries, and widget tokens.
package domain

import "time"

type SourceType string

const (
	SourceTypePDF  SourceType = "pdf"
	SourceTypeDOCX SourceType = "docx"
	SourceTypeTXT  SourceType = "txt"
	SourceTypeURL  SourceType = "url"
)

type SourceStatus string

const (
	SourceStatusUploaded SourceStatus = "uploaded"
	SourceStatusParsing  SourceStatus = "parsing"
	SourceStatusIndexed  SourceStatus = "indexed"
	SourceStatusFailed   SourceStatus = "failed"
)

// Bot is a tenant's chat-widget configuration: the unit ownership and rate
// limiting are scoped to.
type Bot struct {
	ID               string
	OwnerUserID      string
	Name             string
	SystemPrompt     string
	TopK             int
	MinScore         float64
	RateLimitPerMin  int
	LLMModel         string
	LLMTemperature   float32
	LLMMaxTokens     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Source is one ingested document or crawled URL belonging to a Bot.
type Source struct {
	ID            string
	BotID         string
	SourceType    SourceType
	Status        SourceStatus
	OriginalURL   string
	CanonicalURL  string
	StoragePath   string
	MimeType      string
	FileSize      int64
	Checksum      string
	ETag          string
	LastModified  string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk is one packed, embedded slice of a Source's text. CharStart/CharEnd
// are byte offsets into the source's extracted text, covering this chunk's
// sentences plus any overlap tail carried forward from the previous chunk.
type Chunk struct {
	ID          string
	SourceID    string
	BotID       string
	ChunkIndex  int
	Text        string
	Heading     string
	TokenCount  int
	CharStart   int
	CharEnd     int
	Embedding   []float32
	PublishDate *time.Time
	CreatedAt   time.Time
}

// QueryLog records one answered widget or authenticated query.
type QueryLog struct {
	ID                string
	BotID             string
	SessionID         string
	QueryText         string
	PageURL           string
	ResponseSummary   string
	Citations         []Citation
	Confidence        *float64
	PromptTokens      int
	CompletionTokens  int
	TotalTokens       int
	LatencyMS         int
	UserFeedback      *bool
	CreatedAt         time.Time
}

// Citation is a single retrieved chunk referenced by an answer.
type Citation struct {
	ChunkID    string  `json:"chunk_id"`
	Heading    string  `json:"heading,omitempty"`
	Score      float64 `json:"score"`
	SourceID   string  `json:"source_id,omitempty"`
	SourceType string  `json:"source_type,omitempty"`
	Filename   string  `json:"filename,omitempty"`
}

// WidgetToken is an opaque bearer credential scoping widget requests to a
// Bot and to a non-empty allow-listed set of embedding domains.
type WidgetToken struct {
	ID           string
	BotID        string
	Name         string
	TokenHash    string
	TokenPrefix  string
	AllowedHosts []string
	Revoked      bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	LastUsedAt   *time.Time
}

// RetrievedChunk pairs a Chunk with the cosine similarity score it scored
// against a query embedding.
type RetrievedChunk struct {
	Chunk Chunk
	Score float64
}
