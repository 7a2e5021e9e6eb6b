package main

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/goliatone/go-autocrud"
)

var bookEditorConstraint, _ = autocrud.CannotEqual("author_id", "editor_id", "book", "")

func migrate(ctx context.Context, db *bun.DB) error {
	db.RegisterModel((*BookTag)(nil))

	for _, model := range models() {
		q := db.NewCreateTable().Model(model).IfNotExists()
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", model, err)
		}
	}

	if db.Dialect().Name() != dialect.PG {
		return nil
	}

	// Postgres has no ADD CONSTRAINT IF NOT EXISTS.
	exists, err := db.NewSelect().
		TableExpr("pg_constraint").
		Where("conname = ?", bookEditorConstraint.Name).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = db.ExecContext(ctx, "ALTER TABLE books ADD "+bookEditorConstraint.SQL())
	return err
}

func seedDemo(ctx context.Context, db *bun.DB) error {
	n, err := db.NewSelect().Model((*Book)(nil)).Count(ctx)
	if err != nil || n > 0 {
		return err
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		companies := []*Company{{Name: "Gollancz"}, {Name: "Penguin"}}
		if _, err := tx.NewInsert().Model(&companies).Exec(ctx); err != nil {
			return err
		}

		authors := []*Author{
			{Name: "Frank Herbert", Email: "frank@example.com", CompanyID: companies[0].ID},
			{Name: "Jane Austen", Email: "jane@example.com", CompanyID: companies[1].ID},
			{Name: "Ursula Le Guin", Email: "ursula@example.com", CompanyID: companies[0].ID},
		}
		if _, err := tx.NewInsert().Model(&authors).Exec(ctx); err != nil {
			return err
		}

		tags := []*Tag{{Name: "classic"}, {Name: "sci-fi"}, {Name: "romance"}}
		if _, err := tx.NewInsert().Model(&tags).Exec(ctx); err != nil {
			return err
		}

		day := func(s string) time.Time {
			t, _ := time.Parse(time.DateOnly, s)
			return t
		}

		books := []*Book{
			{Title: "Dune", IsFeatured: true, Status: StatusPublished, Price: 9.99, Published: day("1965-08-01"), AuthorID: authors[0].ID, EditorID: authors[2].ID},
			{Title: "Emma", Status: StatusPublished, Price: 7.5, Published: day("1815-12-23"), AuthorID: authors[1].ID},
			{Title: "The Dispossessed", Status: StatusArchived, Price: 11, Published: day("1974-05-01"), AuthorID: authors[2].ID, EditorID: authors[0].ID},
			{Title: "Untitled", Status: StatusDraft, AuthorID: authors[2].ID},
		}
		for _, b := range books {
			if bookEditorConstraint.Violated(b) {
				return fmt.Errorf("book %q: %s", b.Title, bookEditorConstraint.Name)
			}
		}
		if _, err := tx.NewInsert().Model(&books).Exec(ctx); err != nil {
			return err
		}

		links := []*BookTag{
			{BookID: books[0].ID, TagID: tags[0].ID},
			{BookID: books[0].ID, TagID: tags[1].ID},
			{BookID: books[1].ID, TagID: tags[0].ID},
			{BookID: books[1].ID, TagID: tags[2].ID},
			{BookID: books[2].ID, TagID: tags[1].ID},
		}
		if _, err := tx.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}

		reviews := []*Review{
			{BookID: books[0].ID, Rating: 5, Body: "Spice must flow"},
			{BookID: books[0].ID, Rating: 4},
			{BookID: books[1].ID, Rating: 3, Body: "Witty"},
		}
		_, err := tx.NewInsert().Model(&reviews).Exec(ctx)
		return err
	})
}
