// Package csvtable reads bank statements exported as delimited tables. A
// statement may start with any number of preamble rows; the first row that
// carries every column of a known profile is taken as the header.
package csvtable

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Willizberc/Pexfin/internal/money"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

var ErrNoProfile = errors.New("no matching statement format")

type AmountMode int

const (
	// Signed is one column holding a signed amount, e.g. "-10,00".
	Signed AmountMode = iota
	// Split is separate debit and credit columns.
	Split
)

// Profile describes the column layout of one export format. Column names
// are matched case-insensitively.
type Profile struct {
	Name        string
	DateCol     string
	DescCol     string
	DateLayouts []string
	AmountMode  AmountMode
	AmountCol   string
	DebitCol    string
	CreditCol   string
}

func (p *Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol}

	switch p.AmountMode {
	case Signed:
		cols = append(cols, p.AmountCol)
	case Split:
		cols = append(cols, p.DebitCol, p.CreditCol)
	}

	return cols
}

// Parser tries Profiles in order; put more specific layouts first.
type Parser struct {
	// Comma is the field delimiter. Zero picks ';' or ',' from the first line.
	Comma    rune
	Profiles []Profile
}

func (p *Parser) Parse(r io.Reader) ([]transaction.Entry, error) {
	br := bufio.NewReader(r)

	comma := p.Comma
	if comma == 0 {
		comma = sniffComma(br)
	}

	reader := csv.NewReader(br)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	profile, cols, headerIdx := p.detect(rows)
	if profile == nil {
		return nil, ErrNoProfile
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
}

func sniffComma(br *bufio.Reader) rune {
	head, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}

	if bytes.Count(head, []byte{';'}) > bytes.Count(head, []byte{','}) {
		return ';'
	}

	return ','
}

type colIndex map[string]int

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p *Parser) detect(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			if name := normalize(cell); name != "" {
				cols[name] = i
			}
		}

		for i := range p.Profiles {
			if matches(&p.Profiles[i], cols) {
				return &p.Profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matches(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[normalize(name)]; !ok {
			return false
		}
	}

	return true
}

// parseRows skips rows without a parseable date or a non-zero amount; those
// are footers and page markers. A dated row without a description fails the
// whole statement.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerIdx int) ([]transaction.Entry, error) {
	dateIdx := cols[normalize(p.DateCol)]
	descIdx := cols[normalize(p.DescCol)]

	var entries []transaction.Entry

	for i, row := range rows {
		rowNum := headerIdx + i + 2

		date, ok := parseDate(p.DateLayouts, cell(row, dateIdx))
		if !ok {
			continue
		}

		desc := cell(row, descIdx)
		if desc == "" {
			return nil, fmt.Errorf("row %d: missing description", rowNum)
		}

		amount, category, ok := parseAmount(p, cols, row)
		if !ok {
			continue
		}

		entries = append(entries, transaction.Entry{
			Date:        date,
			Description: desc,
			Category:    category,
			Amount:      amount,
		})
	}

	return entries, nil
}

func parseDate(layouts []string, s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func parseAmount(p *Profile, cols colIndex, row []string) (int64, transaction.Category, bool) {
	switch p.AmountMode {
	case Signed:
		cents, err := money.Parse(cell(row, cols[normalize(p.AmountCol)]))
		if err != nil || cents == 0 {
			return 0, "", false
		}

		if cents < 0 {
			return -cents, transaction.Expense, true
		}

		return cents, transaction.Income, true
	case Split:
		if cents, err := money.Parse(cell(row, cols[normalize(p.DebitCol)])); err == nil && cents != 0 {
			return abs(cents), transaction.Expense, true
		}

		if cents, err := money.Parse(cell(row, cols[normalize(p.CreditCol)])); err == nil && cents != 0 {
			return abs(cents), transaction.Income, true
		}
	}

	return 0, "", false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
