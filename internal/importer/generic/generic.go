// Package generic reads plain Date, Description, Amount exports as produced
// by most banks and spreadsheets.
package generic

import "github.com/Willizberc/Pexfin/internal/importer/csvtable"

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "02.01.2006"}

var profiles = []csvtable.Profile{
	{
		Name:        "debit-credit",
		DateCol:     "Date",
		DescCol:     "Description",
		DateLayouts: dateLayouts,
		AmountMode:  csvtable.Split,
		DebitCol:    "Debit",
		CreditCol:   "Credit",
	},
	{
		Name:        "signed",
		DateCol:     "Date",
		DescCol:     "Description",
		DateLayouts: dateLayouts,
		AmountMode:  csvtable.Signed,
		AmountCol:   "Amount",
	},
}

// NewParser detects ',' or ';' from the first line.
func NewParser() *csvtable.Parser {
	return &csvtable.Parser{Profiles: profiles}
}
