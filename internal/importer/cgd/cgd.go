// Package cgd reads Caixa Geral de Depósitos CSV exports.
package cgd

import "github.com/Willizberc/Pexfin/internal/importer/csvtable"

var dateLayouts = []string{"02-01-2006"}

// profiles covers the account (conta), statement (extrato) and card
// (cartão) exports.
var profiles = []csvtable.Profile{
	{
		Name:        "cartão",
		DateCol:     "Data",
		DescCol:     "Descrição",
		DateLayouts: dateLayouts,
		AmountMode:  csvtable.Split,
		DebitCol:    "Débito",
		CreditCol:   "Crédito",
	},
	{
		Name:        "extrato",
		DateCol:     "Data mov.",
		DescCol:     "Descrição",
		DateLayouts: dateLayouts,
		AmountMode:  csvtable.Signed,
		AmountCol:   "Movimento",
	},
	{
		Name:        "conta",
		DateCol:     "Data mov.",
		DescCol:     "Descrição",
		DateLayouts: dateLayouts,
		AmountMode:  csvtable.Signed,
		AmountCol:   "Montante",
	},
}

func NewParser() *csvtable.Parser {
	return &csvtable.Parser{Comma: ';', Profiles: profiles}
}
