package main

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-autocrud"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (Status) Choices() []autocrud.Choice {
	return []autocrud.Choice{
		{Value: string(StatusDraft), Label: "Draft"},
		{Value: string(StatusPublished), Label: "Published"},
		{Value: string(StatusArchived), Label: "Archived"},
	}
}

type Company struct {
	bun.BaseModel `bun:"table:companies,alias:company"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull" crud:"display"`
}

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:author"`

	ID        int64    `bun:"id,pk,autoincrement"`
	Name      string   `bun:"name,notnull" crud:"display"`
	Email     string   `bun:"email"`
	CompanyID int64    `bun:"company_id"`
	Company   *Company `bun:"rel:belongs-to,join:company_id=id" crud:"display"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

type BookTag struct {
	bun.BaseModel `bun:"table:book_tags,alias:book_tag"`

	BookID int64 `bun:"book_id,pk"`
	Book   *Book `bun:"rel:belongs-to,join:book_id=id"`
	TagID  int64 `bun:"tag_id,pk"`
	Tag    *Tag  `bun:"rel:belongs-to,join:tag_id=id"`
}

type Book struct {
	bun.BaseModel `bun:"table:books,alias:book"`

	ID         int64           `bun:"id,pk,autoincrement"`
	Title      string          `bun:"title,notnull" crud:"display"`
	IsFeatured bool            `bun:"is_featured,notnull,default:false" crud:"display"`
	Status     Status          `bun:"status,notnull,default:'draft'" crud:"display"`
	Price      autocrud.Amount `bun:"price"`
	Published  time.Time       `bun:"published,nullzero" crud:"date"`
	UpdatedAt  time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	AuthorID   int64           `bun:"author_id"`
	Author     *Author         `bun:"rel:belongs-to,join:author_id=id"`
	EditorID   int64           `bun:"editor_id,nullzero"`
	Editor     *Author         `bun:"rel:belongs-to,join:editor_id=id"`
	Tags       []*Tag          `bun:"m2m:book_tags,join:Book=Tag"`
	Reviews    []*Review       `bun:"rel:has-many,join:id=book_id"`
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:review"`

	ID        int64     `bun:"id,pk,autoincrement"`
	BookID    int64     `bun:"book_id,notnull"`
	Rating    int       `bun:"rating,notnull"`
	Body      string    `bun:"body"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" crud:"datetime"`
}

// AuditEntry is never exposed; see the excluded_models setting.
type AuditEntry struct {
	bun.BaseModel `bun:"table:audit_entries,alias:audit_entry"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Message string `bun:"message"`
}

func models() []any {
	return []any{
		(*Company)(nil),
		(*Author)(nil),
		(*Tag)(nil),
		(*Book)(nil),
		(*BookTag)(nil),
		(*Review)(nil),
		(*AuditEntry)(nil),
	}
}
