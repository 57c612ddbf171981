package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/brokerage"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/model"
)

// asOfSeparator splits the broker's backdated-settlement date form
// "MM/DD/YYYY as of MM/DD/YYYY". The first date governs ordering; the
// "as of" date is kept as auxiliary metadata only.
const asOfSeparator = " as of "

// RecordError reports one raw record that could not be normalized. Record
// errors never abort a batch; they are collected and returned alongside the
// successfully normalized transactions.
type RecordError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Normalizer converts raw broker records into canonical transactions.
// Parse failures inside a record degrade that record (null date, zero
// amount, NEUTRAL category) rather than rejecting it; only a record with
// neither an action nor a symbol is dropped.
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a Normalizer logging warnings to the given logger.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		log: log.With().Str("component", "normalizer").Logger(),
	}
}

// NormalizeBatch normalizes every record in the batch, collecting per-record
// failures instead of aborting. Returned transactions carry no IDs yet;
// callers dedupe first and then assign deterministic IDs via AssignIDs.
func (n *Normalizer) NormalizeBatch(accountID string, raws []brokerage.RawTransaction) ([]model.Transaction, []RecordError) {
	transactions := make([]model.Transaction, 0, len(raws))
	var recordErrors []RecordError

	seenUnknownActions := make(map[string]bool)

	for i, raw := range raws {
		tx, err := n.normalize(accountID, raw, seenUnknownActions)
		if err != nil {
			recordErrors = append(recordErrors, RecordError{Index: i, Reason: err.Error()})
			continue
		}
		transactions = append(transactions, tx)
	}

	return transactions, recordErrors
}

// Normalize converts a single raw record into a canonical transaction.
func (n *Normalizer) Normalize(accountID string, raw brokerage.RawTransaction) (model.Transaction, error) {
	return n.normalize(accountID, raw, make(map[string]bool))
}

func (n *Normalizer) normalize(accountID string, raw brokerage.RawTransaction, seenUnknownActions map[string]bool) (model.Transaction, error) {
	action := strings.TrimSpace(raw.Action)
	symbol := strings.TrimSpace(raw.Symbol)

	if action == "" && symbol == "" {
		return model.Transaction{}, fmt.Errorf("record has neither an action nor a symbol")
	}

	date, asOf := ParseDate(raw.Date)
	if date == nil && strings.TrimSpace(raw.Date) != "" {
		n.log.Warn().
			Str("date", raw.Date).
			Str("symbol", symbol).
			Msg("unparseable transaction date, retaining record without date")
	}

	category, known := CategoryFor(action)
	if !known && !seenUnknownActions[action] {
		seenUnknownActions[action] = true
		n.log.Warn().
			Str("action", action).
			Msg("unknown action code, defaulting category to NEUTRAL")
	}

	quantity := n.parseMoneyField(raw.Quantity, "quantity", symbol)
	price := n.parseMoneyField(raw.Price, "price", symbol)
	fees := n.parseMoneyField(raw.FeesComm, "fees", symbol)
	amount := n.parseMoneyField(raw.Amount, "amount", symbol)

	return model.Transaction{
		AccountID:   accountID,
		Date:        date,
		AsOfDate:    asOf,
		Symbol:      symbol,
		Action:      action,
		Category:    category,
		Quantity:    quantity,
		Price:       price,
		Fees:        fees,
		Amount:      amount,
		Description: strings.TrimSpace(raw.Description),
	}, nil
}

// parseMoneyField parses a numeric string field, logging a warning and
// normalizing to 0 when the value is non-numeric. Never fails the record.
func (n *Normalizer) parseMoneyField(value, field, symbol string) float64 {
	parsed, ok := ParseAmount(value)
	if !ok {
		n.log.Warn().
			Str("field", field).
			Str("value", value).
			Str("symbol", symbol).
			Msg("non-numeric value, normalizing to 0")
	}
	return parsed
}

// AssignIDs stamps deterministic IDs onto a deduplicated batch. Transactions
// sharing a signature are numbered in input order, so identical batches
// always produce identical IDs and re-imports merge instead of duplicating.
func AssignIDs(transactions []model.Transaction) []model.Transaction {
	ordinals := make(map[string]int)

	for i := range transactions {
		tx := &transactions[i]
		key := signatureKey(tx.Date, tx.Symbol, tx.Action, tx.Quantity)
		tx.ID = TransactionID(tx.AccountID, tx.Date, tx.Symbol, tx.Action, tx.Quantity, ordinals[key])
		ordinals[key]++
	}

	return transactions
}

// ParseDate parses a broker date string. Returns the primary date and, for
// the "MM/DD/YYYY as of MM/DD/YYYY" form, the auxiliary as-of date.
// Unparseable strings return (nil, nil): the record is retained overall but
// excluded from date-dependent calculations.
//
// Accepted forms: "2006-01-02", RFC3339, "01/02/2006", and the as-of pair.
func ParseDate(value string) (date, asOf *time.Time) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if primary, auxiliary, found := strings.Cut(value, asOfSeparator); found {
		date = parseSingleDate(primary)
		asOf = parseSingleDate(auxiliary)
		return date, asOf
	}

	return parseSingleDate(value), nil
}

func parseSingleDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", "01/02/2006", time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

// ParseAmount parses a monetary or share-count string, stripping currency
// symbols, thousands separators, and whitespace. Accountant-style
// parenthesized values are negative. Returns (0, false) for non-numeric
// input; callers decide whether that warrants a warning.
func ParseAmount(value string) (float64, bool) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	replacer := strings.NewReplacer("$", "", "€", "", ",", "", " ", "")
	cleaned = replacer.Replace(cleaned)

	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		parsed = -parsed
	}
	return parsed, true
}
