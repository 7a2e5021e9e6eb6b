package autocrud_test

import (
	"time"

	"github.com/goliatone/go-autocrud"
)

type Widget struct {
	ID   int64 `bun:"id,pk"`
	Size int   `bun:"size"`
}

type company struct {
	ID   int64  `bun:"id,pk"`
	Name string `bun:"name" crud:"display"`
}

type person struct {
	ID        int64    `bun:"id,pk"`
	IsActive  bool     `bun:"is_active" crud:"display"`
	Name      string   `bun:"name" crud:"display"`
	CompanyID int64    `bun:"company_id"`
	Company   *company `bun:"rel:belongs-to,join:company_id=id"`
}

type status string

func (status) Choices() []autocrud.Choice {
	return []autocrud.Choice{
		{Value: "draft", Label: "Draft"},
		{Value: "live", Label: "Published"},
	}
}

type label struct {
	ID   int64  `bun:"id,pk"`
	Name string `bun:"name"`
}

type order struct {
	ID         int64           `bun:"id,pk"`
	Code       string          `bun:"code" crud:"display"`
	Status     status          `bun:"status" crud:"display"`
	Priority   string          `bun:"priority" crud:"choices=low:Low|high:High"`
	Total      autocrud.Amount `bun:"total"`
	Placed     time.Time       `bun:"placed" crud:"date"`
	Delivered  *time.Time      `bun:"delivered"`
	Slot       time.Time       `bun:"slot" crud:"time"`
	UpdatedAt  time.Time       `bun:"updated_at"`
	CustomerID int64           `bun:"customer_id"`
	Customer   *person         `bun:"rel:belongs-to,join:customer_id=id" crud:"display"`
	Labels     []*label        `bun:"m2m:order_labels,join:Order=Label"`
	Notes      string          `bun:"-"`
}

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedOrders() []*order {
	acme := &company{ID: 1, Name: "Acme"}
	bob := &person{ID: 1, IsActive: true, Name: "Bob", CompanyID: 1, Company: acme}
	ann := &person{ID: 2, Name: "Ann", CompanyID: 1, Company: acme}
	urgent := &label{ID: 1, Name: "urgent"}
	gift := &label{ID: 2, Name: "gift"}

	return []*order{
		{ID: 1, Code: "A-1", Status: "draft", Priority: "low", Total: 10, Placed: day("2024-01-15"), UpdatedAt: day("2024-05-01"), CustomerID: 1, Customer: bob, Labels: []*label{urgent}},
		{ID: 2, Code: "A-2", Status: "live", Priority: "high", Total: 25.5, Placed: day("2024-02-03"), UpdatedAt: day("2024-06-01"), CustomerID: 2, Customer: ann, Labels: []*label{gift}},
		{ID: 3, Code: "B-1", Status: "live", Priority: "low", Total: 7, Placed: day("2024-04-20"), UpdatedAt: day("2024-07-01"), CustomerID: 1, Customer: bob, Labels: []*label{urgent, gift}},
	}
}
