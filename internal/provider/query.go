package provider

import (
	"fmt"
	"strings"

	"coursebook/internal/contract"
	"coursebook/internal/domain"
)

// QueryArgs are the optional parts of a query
type QueryArgs struct {
	// Columns is the projection; empty selects every column
	Columns []string
	// Filter is ignored for item identifiers
	Filter domain.Filter
	// Order is a comma separated list of "column [ASC|DESC]"
	Order string
}

func validateColumns(columns []string) error {
	for _, c := range columns {
		if !contract.IsColumn(c) {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidArgument, c)
		}
	}
	return nil
}

// validateOrder only accepts known columns with an optional direction,
// since the clause is spliced into the SQL text
func validateOrder(order string) error {
	if strings.TrimSpace(order) == "" {
		return nil
	}
	for _, term := range strings.Split(order, ",") {
		fields := strings.Fields(term)
		switch {
		case len(fields) == 0 || len(fields) > 2:
			return fmt.Errorf("%w: bad order term %q", ErrInvalidArgument, term)
		case !contract.IsColumn(fields[0]):
			return fmt.Errorf("%w: unknown order column %q", ErrInvalidArgument, fields[0])
		case len(fields) == 2 && !strings.EqualFold(fields[1], "ASC") && !strings.EqualFold(fields[1], "DESC"):
			return fmt.Errorf("%w: bad order direction %q", ErrInvalidArgument, fields[1])
		}
	}
	return nil
}

func validateValues(values domain.Values, nameRequired bool) error {
	if err := values.ValidateName(nameRequired); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if unknown := values.UnknownColumns(); len(unknown) > 0 {
		return fmt.Errorf("%w: unknown columns %v", ErrInvalidArgument, unknown)
	}
	return nil
}
