package ibkr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"trade-journal-go/internal/models"
)

// Paste parser errors. Every failure aborts the whole parse.
var (
	ErrNothingToParse  = errors.New("nothing to parse")
	ErrUnparseableLine = errors.New("unparseable line")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidFee      = errors.New("invalid fee")
	ErrMultipleSymbols = errors.New("multiple symbols in one paste")
	ErrNoEntries       = errors.New("no entries found")
)

const (
	actionBought = "BOT"
	actionSold   = "SLD"
)

var (
	// [marker] HH:MM:SS <symbol> BOT|SLD <qty> <price> <fee> [running total]
	// The marker never starts with a digit so it cannot swallow the time.
	executionLine = regexp.MustCompile(`(?i)^(?:[^\s\d]\S*\s+)?(\d{2}:\d{2}:\d{2})\s+(.+?)\s+(BOT|SLD)\s+(\S+)\s+(\S+)\s+(\S+)(?:\s+\S+)?$`)
	optionWord    = regexp.MustCompile(`(?i)\b(CALL|PUT)\b`)
)

// pastedFill is one validated execution line.
type pastedFill struct {
	time     string
	symbol   string
	action   string
	quantity float64
	price    float64
	fee      float64
}

// ParseExecutions parses execution lines pasted from TWS into a single trade
// draft. All lines must belong to one symbol. The earliest fill decides the
// direction; fills on that side are entries and the others exits.
func ParseExecutions(text string) (*TradeDraft, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrNothingToParse
	}

	fills := make([]pastedFill, 0, len(lines))
	for _, line := range lines {
		fill, err := parseExecutionLine(line)
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}
	for _, fill := range fills[1:] {
		if fill.symbol != fills[0].symbol {
			return nil, fmt.Errorf("%w: %q and %q", ErrMultipleSymbols, fills[0].symbol, fill.symbol)
		}
	}

	// HH:MM:SS is fixed width, so string order is time order.
	sort.SliceStable(fills, func(i, j int) bool { return fills[i].time < fills[j].time })

	direction := models.DirectionLong
	entryAction := actionBought
	if fills[0].action == actionSold {
		direction = models.DirectionShort
		entryAction = actionSold
	}

	draft := &TradeDraft{
		Symbol:     fills[0].symbol,
		AssetClass: detectAssetClass(fills[0].symbol),
		Direction:  direction,
		Exits:      []DraftExit{},
	}

	quantity, notional, fees := decimal.Zero, decimal.Zero, decimal.Zero
	for _, fill := range fills {
		if fill.action != entryAction {
			draft.Exits = append(draft.Exits, DraftExit{
				Time:     fill.time[:5],
				Quantity: fill.quantity,
				Price:    fill.price,
				Fees:     fill.fee,
			})
			continue
		}
		if quantity.IsZero() {
			draft.EntryTime = fill.time[:5]
		}
		qty := decimal.NewFromFloat(fill.quantity)
		quantity = quantity.Add(qty)
		notional = notional.Add(qty.Mul(decimal.NewFromFloat(fill.price)))
		fees = fees.Add(decimal.NewFromFloat(fill.fee))
	}

	if quantity.IsZero() {
		return nil, ErrNoEntries
	}

	draft.Quantity = quantity.InexactFloat64()
	draft.EntryPrice = notional.Div(quantity).InexactFloat64()
	draft.EntryFees = fees.InexactFloat64()
	return draft, nil
}

func parseExecutionLine(line string) (pastedFill, error) {
	m := executionLine.FindStringSubmatch(line)
	if m == nil {
		return pastedFill{}, fmt.Errorf("%w: %q", ErrUnparseableLine, line)
	}

	quantity, ok := parseNumber(m[4])
	if !ok || quantity <= 0 {
		return pastedFill{}, fmt.Errorf("%w %q on line %q", ErrInvalidQuantity, m[4], line)
	}
	price, ok := parseNumber(m[5])
	if !ok || price <= 0 {
		return pastedFill{}, fmt.Errorf("%w %q on line %q", ErrInvalidPrice, m[5], line)
	}
	fee, ok := parseNumber(m[6])
	if fee = math.Abs(fee); !ok || fee < 0 {
		return pastedFill{}, fmt.Errorf("%w %q on line %q", ErrInvalidFee, m[6], line)
	}

	return pastedFill{
		time:     m[1],
		symbol:   strings.TrimSpace(m[2]),
		action:   strings.ToUpper(m[3]),
		quantity: quantity,
		price:    price,
		fee:      fee,
	}, nil
}

// parseNumber accepts thousands separators and rejects NaN and infinities.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func detectAssetClass(symbol string) models.AssetClass {
	if optionWord.MatchString(symbol) {
		return models.AssetClassOption
	}
	return models.AssetClassStock
}
