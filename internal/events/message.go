// Package events consumes transaction-created events from Kafka and runs the
// event-triggered alert kinds against each transaction.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/shopspring/decimal"
)

// TransactionCreated is the payload published when a transaction is posted.
type TransactionCreated struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	MerchantName *string         `json:"merchant_name,omitempty"`
	Category     string          `json:"category"`
	Description  string          `json:"description,omitempty"`
	Date         time.Time       `json:"date"`
}

// ErrInvalidMessage is returned for payloads that can never be processed.
var ErrInvalidMessage = errors.New("invalid transaction message")

// Decode parses and validates a TransactionCreated payload.
func Decode(value []byte) (*TransactionCreated, error) {
	var ev TransactionCreated
	if err := json.Unmarshal(value, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch {
	case strings.TrimSpace(ev.ID) == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
	case strings.TrimSpace(ev.UserID) == "":
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidMessage)
	case strings.TrimSpace(ev.AccountID) == "":
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidMessage)
	}
	return &ev, nil
}

// Transaction converts the event into the model type. A zero date means now.
func (e *TransactionCreated) Transaction(now time.Time) model.Transaction {
	date := e.Date
	if date.IsZero() {
		date = now
	}
	return model.Transaction{
		ID:           e.ID,
		UserID:       e.UserID,
		AccountID:    e.AccountID,
		Amount:       e.Amount,
		MerchantName: e.MerchantName,
		Category:     e.Category,
		Description:  e.Description,
		Date:         date.UTC(),
	}
}
