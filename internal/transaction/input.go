package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/validation"
)

// Input is a transaction as entered by the user.
type Input struct {
	Description    string
	Amount         string
	Category       string
	IdempotencyKey string
}

type draft struct {
	description string
	amount      int64
	category    Category
	key         string
}

func (in Input) validate() (draft, error) {
	var (
		p validation.Problems
		d draft
	)

	if p.Require("description", in.Description) {
		d.description = strings.TrimSpace(in.Description)
	}

	if p.Require("amount", in.Amount) {
		cents, err := money.Parse(in.Amount)

		switch {
		case errors.Is(err, money.ErrPrecision):
			p.Add("amount", "must have at most two decimals")
		case errors.Is(err, money.ErrRange):
			p.Add("amount", "is too large")
		case err != nil:
			p.Add("amount", "must be a number")
		case cents <= 0:
			p.Add("amount", "must be greater than zero")
		}

		d.amount = cents
	}

	if p.Require("category", in.Category) {
		c, ok := ParseCategory(in.Category)
		if !ok {
			p.Add("category", fmt.Sprintf("must be %s or %s", Income, Expense))
		}

		d.category = c
	}

	d.key = strings.TrimSpace(in.IdempotencyKey)

	return d, p.Err()
}

func validateEntries(entries []Entry) error {
	var p validation.Problems

	for i, e := range entries {
		field := fmt.Sprintf("entries[%d]", i)

		switch {
		case strings.TrimSpace(e.Description) == "":
			p.Add(field, "description is required")
		case e.Amount <= 0:
			p.Add(field, "amount must be greater than zero")
		case e.Category != Income && e.Category != Expense:
			p.Add(field, "unknown category")
		case e.Date.IsZero():
			p.Add(field, "date is required")
		}
	}

	return p.Err()
}
