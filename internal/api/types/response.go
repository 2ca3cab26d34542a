// internal/api/types/response.go
package types

import (
	"time"

	"github.com/shopspring/decimal"

	"wallet-ledger/internal/domain"
)

// OperationRequest is the body of POST /wallets/{walletID}/operation.
// Amount accepts either a JSON number or a decimal string.
type OperationRequest struct {
	OperationType string           `json:"operationType" validate:"required"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
}

// WalletResponse is the wire form of a wallet. Balance is always rendered with two decimals.
type WalletResponse struct {
	ID        string    `json:"id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWalletResponse converts a domain wallet into its response form.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		Balance:   w.Balance.StringFixed(domain.BalanceScale),
		UpdatedAt: w.UpdatedAt,
	}
}

// NewWalletListResponse converts a slice of wallets.
func NewWalletListResponse(wallets []domain.Wallet) []WalletResponse {
	out := make([]WalletResponse, 0, len(wallets))
	for i := range wallets {
		out = append(out, NewWalletResponse(&wallets[i]))
	}
	return out
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Shortfall string `json:"shortfall,omitempty"`
}
