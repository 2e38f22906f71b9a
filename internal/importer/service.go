package importer

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/Willizberc/Pexfin/internal/encoding"
	"github.com/Willizberc/Pexfin/internal/importer/cgd"
	"github.com/Willizberc/Pexfin/internal/importer/generic"
	"github.com/Willizberc/Pexfin/internal/transaction"
)

type Service struct {
	parsers map[Bank]Parser
}

func NewService() *Service {
	return &Service{
		parsers: map[Bank]Parser{
			BankGeneric: generic.NewParser(),
			BankCGD:     cgd.NewParser(),
		},
	}
}

// Banks lists the supported statement formats.
func (s *Service) Banks() []Bank {
	banks := make([]Bank, 0, len(s.parsers))
	for b := range s.parsers {
		banks = append(banks, b)
	}

	sort.Slice(banks, func(i, j int) bool { return banks[i] < banks[j] })

	return banks
}

// Import decodes r to UTF-8 and parses it with the bank's parser. Entries
// come back oldest first.
func (s *Service) Import(bank Bank, r io.Reader) ([]transaction.Entry, error) {
	parser, ok := s.parsers[bank]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBank, bank)
	}

	utf8r, _, err := encoding.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	entries, err := parser.Parse(utf8r)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b transaction.Entry) int {
		return a.Date.Compare(b.Date)
	})

	return entries, nil
}
