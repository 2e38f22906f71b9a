// Package importer turns bank statement exports into ledger entries.
package importer

import (
	"errors"
	"io"

	"github.com/Willizberc/Pexfin/internal/transaction"
)

type Bank string

const (
	BankGeneric Bank = "generic"
	BankCGD     Bank = "cgd"
)

var ErrUnknownBank = errors.New("unknown bank")

type Parser interface {
	Parse(r io.Reader) ([]transaction.Entry, error)
}
