// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wallet-ledger/internal/api/types"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/service"
	"wallet-ledger/internal/util" // For custom errors
)

// DefaultTimeout bounds a single request when no REQUEST_TIMEOUT is configured.
const DefaultTimeout = 30 * time.Second

// MaxBodyBytes caps operation request bodies.
const MaxBodyBytes = 1 << 20

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	service  service.WalletService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc service.WalletService, logger *slog.Logger) *WalletHandler {
	validate := validator.New()
	// Report JSON field names in validation errors.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &WalletHandler{
		service:  svc,
		validate: validate,
		logger:   logger,
	}
}

// Helper function to send JSON responses.
func (h *WalletHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to send error responses.
func (h *WalletHandler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	body := types.ErrorResponse{Error: "Internal server error"}

	var validationErr *util.ValidationError
	switch {
	case errors.As(err, &validationErr):
		statusCode = http.StatusBadRequest
		body.Error = validationErr.Error()
		body.Field = validationErr.Field
	case util.IsError(err, util.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		body.Error = util.ErrInvalidInput.Error()
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusBadRequest
		body.Error = util.ErrInsufficientFunds.Error()
		if shortfall, ok := util.Shortfall(err); ok {
			body.Shortfall = shortfall.StringFixed(domain.BalanceScale)
		}
	case util.IsError(err, util.ErrWalletNotFound):
		statusCode = http.StatusNotFound
		body.Error = "Wallet not found"
	case util.IsError(err, util.ErrNoData):
		statusCode = http.StatusNotFound
		body.Error = "No data"
	case util.IsError(err, util.ErrStorage):
		body.Error = "Database error"
		h.logger.Error("Storage failure", "path", r.URL.Path, "error", err)
	default:
		h.logger.Error("Unhandled service error", "path", r.URL.Path, "error", err)
	}

	h.respondWithJSON(w, statusCode, body)
}

// walletIDParam validates and parses the {walletID} path segment.
func (h *WalletHandler) walletIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "walletID")
	// uuid.Parse accepts any hex case; the parsed value is always canonical.
	if err := h.validate.Var(raw, "required"); err != nil {
		return uuid.Nil, util.NewValidationError("walletID", "must be a UUID")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, util.NewValidationError("walletID", "must be a UUID")
	}
	return id, nil
}

// validationError turns validator output into the first failing field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return util.NewValidationError(fe.Field(), "is "+fe.Tag())
	}
	return util.NewValidationError("", err.Error())
}

// CreateWallet handles the create wallet request.
// POST /wallets/create
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.service.CreateWallet(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewWalletResponse(wallet))
}

// ListWallets handles the list wallets request.
// GET /wallets/all
func (h *WalletHandler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.ListWallets(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewWalletListResponse(wallets))
}

// GetWallet handles the get wallet request.
// GET /wallets/{walletID}
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	walletID, err := h.walletIDParam(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), walletID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewWalletResponse(wallet))
}

// ApplyOperation handles the deposit/withdraw request.
// POST /wallets/{walletID}/operation
func (h *WalletHandler) ApplyOperation(w http.ResponseWriter, r *http.Request) {
	walletID, err := h.walletIDParam(r)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	var req types.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondWithError(w, r, util.NewValidationError("body", "exceeds 1 MiB"))
			return
		}
		h.respondWithError(w, r, util.NewValidationError("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondWithError(w, r, validationError(err))
		return
	}

	opType, err := domain.ParseOperationType(req.OperationType)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	wallet, err := h.service.ApplyOperation(r.Context(), walletID, domain.Operation{Type: opType, Amount: *req.Amount})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, types.NewWalletResponse(wallet))
}
