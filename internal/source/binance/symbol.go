package binance

import (
	"fmt"
	"regexp"
	"strings"
)

// Checked in order; the first suffix match is taken as the quote.
var knownQuotes = []string{"FDUSD", "USDT", "USDC", "BTC", "ETH", "BNB"}

var (
	pairShape  = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)
	separators = strings.NewReplacer("-", "", "/", "", "_", "")
)

func quoteSuffix(s string) string {
	for _, q := range knownQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return q
		}
	}
	return ""
}

// PairSymbol normalizes user input such as "btc", "BTC-USDT" or
// "eth/btc" to an exchange pair. Inputs with no recognised quote get
// defaultQuote appended.
func PairSymbol(input, defaultQuote string) (string, error) {
	s := separators.Replace(strings.ToUpper(strings.TrimSpace(input)))
	if !pairShape.MatchString(s) {
		return "", fmt.Errorf("binance: malformed symbol %q", input)
	}
	if quoteSuffix(s) == "" {
		s += strings.ToUpper(defaultQuote)
	}
	return s, nil
}

// SplitPair returns the base asset and quote of an exchange pair. quote
// is empty when none is recognised.
func SplitPair(pair string) (base, quote string) {
	pair = strings.ToUpper(pair)
	quote = quoteSuffix(pair)
	return strings.TrimSuffix(pair, quote), quote
}
