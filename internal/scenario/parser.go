// Package scenario parses the text-based order-book scenario grammar
// (A/M/C/R lines): one action or result per line, replayed in order
// against a book. It is not part of the matching core — it is consumed by
// cmd/orderbookctl and by this package's own scenario-fixture tests.
package scenario

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kairos-exchange/orderbook/internal/book"
)

// ActionType distinguishes the three mutating scenario commands.
type ActionType int

const (
	Add ActionType = iota
	Cancel
	Modify
)

// Action is one parsed scenario line (everything except the trailing R line).
type Action struct {
	Type      ActionType
	OrderType book.OrderType
	Side      book.Side
	Price     book.Price
	Quantity  book.Quantity
	OrderId   book.OrderId
}

// Result is the expected final book state asserted by the trailing R line.
type Result struct {
	AllCount int
	BidCount int
	AskCount int
}

// Scenario is a parsed file: the ordered actions to apply and the expected
// final result.
type Scenario struct {
	Actions []Action
	Result  Result
}

var (
	errNoResult      = errors.New("No result specified.")
	errResultNotLast = errors.New("Result should only be specified at the end.")
	errBelowZero     = errors.New("Value is below zero.")
	errUnknownSide   = errors.New("Unknown Side")
	errUnknownType   = errors.New("Unknown OrderType")
)

// Parse reads a scenario from r. A blank line terminates the file early
// (whatever comes after it, including a later R line, is never read); the
// result line must otherwise be the last non-blank line.
func Parse(r io.Reader) (Scenario, error) {
	scanner := bufio.NewScanner(r)
	var actions []Action

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			return Scenario{}, errNoResult
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			return Scenario{}, errNoResult
		}

		if fields[0] == "R" {
			result, err := parseResult(fields)
			if err != nil {
				return Scenario{}, err
			}
			if scanner.Scan() && strings.TrimSpace(scanner.Text()) != "" {
				return Scenario{}, errResultNotLast
			}
			return Scenario{Actions: actions, Result: result}, nil
		}

		action, err := parseAction(fields)
		if err != nil {
			return Scenario{}, err
		}
		actions = append(actions, action)
	}
	if err := scanner.Err(); err != nil {
		return Scenario{}, err
	}
	return Scenario{}, errNoResult
}

func parseAction(fields []string) (Action, error) {
	switch fields[0] {
	case "A":
		if len(fields) < 6 {
			return Action{}, fmt.Errorf("malformed add line: %q", strings.Join(fields, " "))
		}
		side, err := parseSide(fields[1])
		if err != nil {
			return Action{}, err
		}
		orderType, err := parseOrderType(fields[2])
		if err != nil {
			return Action{}, err
		}
		price, err := parsePrice(fields[3])
		if err != nil {
			return Action{}, err
		}
		quantity, err := parseQuantity(fields[4])
		if err != nil {
			return Action{}, err
		}
		id, err := parseOrderId(fields[5])
		if err != nil {
			return Action{}, err
		}
		return Action{
			Type:      Add,
			OrderType: orderType,
			Side:      side,
			Price:     price,
			Quantity:  quantity,
			OrderId:   id,
		}, nil

	case "M":
		if len(fields) < 5 {
			return Action{}, fmt.Errorf("malformed modify line: %q", strings.Join(fields, " "))
		}
		id, err := parseOrderId(fields[1])
		if err != nil {
			return Action{}, err
		}
		side, err := parseSide(fields[2])
		if err != nil {
			return Action{}, err
		}
		price, err := parsePrice(fields[3])
		if err != nil {
			return Action{}, err
		}
		quantity, err := parseQuantity(fields[4])
		if err != nil {
			return Action{}, err
		}
		return Action{Type: Modify, OrderId: id, Side: side, Price: price, Quantity: quantity}, nil

	case "C":
		if len(fields) < 2 {
			return Action{}, fmt.Errorf("malformed cancel line: %q", strings.Join(fields, " "))
		}
		id, err := parseOrderId(fields[1])
		if err != nil {
			return Action{}, err
		}
		return Action{Type: Cancel, OrderId: id}, nil

	default:
		return Action{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseResult(fields []string) (Result, error) {
	if len(fields) < 4 {
		return Result{}, fmt.Errorf("malformed result line: %q", strings.Join(fields, " "))
	}
	all, err := toNumber(fields[1])
	if err != nil {
		return Result{}, err
	}
	bids, err := toNumber(fields[2])
	if err != nil {
		return Result{}, err
	}
	asks, err := toNumber(fields[3])
	if err != nil {
		return Result{}, err
	}
	return Result{AllCount: int(all), BidCount: int(bids), AskCount: int(asks)}, nil
}

func parseSide(s string) (book.Side, error) {
	switch s {
	case "B":
		return book.Buy, nil
	case "S":
		return book.Sell, nil
	default:
		return 0, errUnknownSide
	}
}

func parseOrderType(s string) (book.OrderType, error) {
	switch s {
	case "GoodTillCancel":
		return book.GoodTillCancel, nil
	case "FillAndKill":
		return book.FillAndKill, nil
	case "FillOrKill":
		return book.FillOrKill, nil
	case "GoodForDay":
		return book.GoodForDay, nil
	case "Market":
		return book.Market, nil
	default:
		return 0, errUnknownType
	}
}

func parsePrice(s string) (book.Price, error) {
	v, err := toNumber(s)
	if err != nil {
		return 0, err
	}
	return book.Price(v), nil
}

func parseQuantity(s string) (book.Quantity, error) {
	v, err := toNumber(s)
	if err != nil {
		return 0, err
	}
	return book.Quantity(v), nil
}

func parseOrderId(s string) (book.OrderId, error) {
	v, err := toNumber(s)
	if err != nil {
		return 0, err
	}
	return book.OrderId(v), nil
}

// toNumber parses a base-10 integer; the scenario grammar parses all
// numeric fields as unsigned, so a negative literal is a format error
// rather than a valid (if unusual) signed price.
func toNumber(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, errBelowZero
	}
	return v, nil
}
