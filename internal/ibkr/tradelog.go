package ibkr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// ErrMalformedTradeLog is returned for a trade line that cannot be read.
var ErrMalformedTradeLog = errors.New("malformed trade log line")

const (
	stockTradeTag  = "STK_TRD"
	optionTradeTag = "OPT_TRD"
	tradeLogFields = 15
)

// TradeLogEntry is one fill read from a trade log, together with the
// contract it belongs to.
type TradeLogEntry struct {
	Execution
	Symbol      string
	Description string
	AssetClass  models.AssetClass
	Buy         bool
	Currency    string
	Multiplier  float64
}

// ParseTradeLog reads the trade lines of an IBKR trade log (TLG) statement.
// Trade lines are pipe-delimited:
//
//	STK_TRD|execID|symbol|description|exchange|action|O/C|YYYYMMDD|HH:MM:SS|currency|qty|multiplier|price|proceeds|commission[|fx]
//
// Section headers and account lines are skipped.
func ParseTradeLog(text string) ([]TradeLogEntry, error) {
	var entries []TradeLogEntry
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, stockTradeTag+"|") && !strings.HasPrefix(line, optionTradeTag+"|") {
			continue
		}
		entry, err := parseTradeLogLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseTradeLogLine(line string) (TradeLogEntry, error) {
	f := strings.Split(line, "|")
	if len(f) < tradeLogFields {
		return TradeLogEntry{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedTradeLog, tradeLogFields, len(f))
	}
	for i := range f {
		f[i] = strings.TrimSpace(f[i])
	}

	date, err := time.Parse("20060102", f[7])
	if err != nil {
		return TradeLogEntry{}, fmt.Errorf("%w: bad date %q", ErrMalformedTradeLog, f[7])
	}
	quantity, ok := parseNumber(f[10])
	if !ok || quantity == 0 {
		return TradeLogEntry{}, fmt.Errorf("%w: bad quantity %q", ErrMalformedTradeLog, f[10])
	}
	multiplier, ok := parseNumber(f[11])
	if !ok || multiplier <= 0 {
		multiplier = 1
	}
	price, ok := parseNumber(f[12])
	if !ok || price < 0 {
		return TradeLogEntry{}, fmt.Errorf("%w: bad price %q", ErrMalformedTradeLog, f[12])
	}
	commission, ok := parseNumber(f[14])
	if !ok {
		return TradeLogEntry{}, fmt.Errorf("%w: bad commission %q", ErrMalformedTradeLog, f[14])
	}

	action := strings.ToUpper(f[5])
	if !strings.HasPrefix(action, "BUY") && !strings.HasPrefix(action, "SELL") {
		return TradeLogEntry{}, fmt.Errorf("%w: unknown action %q", ErrMalformedTradeLog, f[5])
	}

	execType := ExecutionExit
	if strings.HasPrefix(strings.ToUpper(f[6]), "O") {
		execType = ExecutionEntry
	}

	asset := models.AssetClassStock
	if f[0] == optionTradeTag {
		asset = models.AssetClassOption
	}

	var at, exchange *string
	if f[8] != "" {
		at = &f[8]
	}
	if f[4] != "" {
		exchange = &f[4]
	}

	return TradeLogEntry{
		Execution: Execution{
			Type:              execType,
			Date:              date.Format(time.DateOnly),
			Time:              at,
			Quantity:          math.Abs(quantity),
			Price:             price,
			Fees:              math.Abs(commission),
			Exchange:          exchange,
			BrokerExecutionID: f[1],
		},
		Symbol:      f[2],
		Description: f[3],
		AssetClass:  asset,
		Buy:         strings.HasPrefix(action, "BUY"),
		Currency:    f[9],
		Multiplier:  multiplier,
	}, nil
}

// parseOptionDescription reads "AAPL 19JAN24 150 C" style descriptions.
func parseOptionDescription(desc string) (string, *OptionDetails, bool) {
	fields := strings.Fields(desc)
	if len(fields) != 4 {
		return "", nil, false
	}
	expiry, err := time.Parse("02Jan06", fields[1])
	if err != nil {
		return "", nil, false
	}
	strike, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", nil, false
	}

	var kind string
	switch strings.ToUpper(fields[3]) {
	case "C", "CALL":
		kind = "call"
	case "P", "PUT":
		kind = "put"
	default:
		return "", nil, false
	}

	return fields[0], &OptionDetails{Type: kind, Strike: strike, Expiration: expiry.Format(time.DateOnly)}, true
}
