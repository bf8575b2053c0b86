package domain

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Request identifies the week to invoice and optionally the template.
type Request struct {
	UserID     snowflake.ID
	WeekStart  time.Time
	TemplateID snowflake.ID
}

// Document is a rendered invoice file.
type Document struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
	// ArchiveURL is a presigned link to the archived copy, when archiving is enabled.
	ArchiveURL string
}

type Service interface {
	Preview(ctx context.Context, req Request) (View, error)
	RenderHTML(ctx context.Context, req Request) (string, error)
	RenderPDF(ctx context.Context, req Request) (Document, error)
}
