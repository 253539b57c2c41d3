// Package rest provides the HTTP facade consumed by the store client.
// The core services return typed errors only; turning them into
// user-visible responses happens here.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tiendatech/inventory/internal/auth"
	"github.com/tiendatech/inventory/internal/catalog"
	ierrors "github.com/tiendatech/inventory/internal/errors"
	"github.com/tiendatech/inventory/internal/report"
	"github.com/tiendatech/inventory/internal/sales"
	"github.com/tiendatech/inventory/pkg/web"
)

// dateOnly is the calendar-date form accepted by the history filters.
const dateOnly = "2006-01-02"

type Handler struct {
	catalog  catalog.ProductService
	sales    sales.SaleService
	reports  report.ReportService
	auth     auth.UserService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the REST handler over the four core services.
func NewHandler(catalogSvc catalog.ProductService, salesSvc sales.SaleService, reportSvc report.ReportService, authSvc auth.UserService, logger *slog.Logger) *Handler {
	return &Handler{
		catalog:  catalogSvc,
		sales:    salesSvc,
		reports:  reportSvc,
		auth:     authSvc,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the inventory service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Post("/api/v1/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(web.SessionMiddleware)

		r.Post("/api/v1/auth/register", h.Register)

		r.Route("/api/v1/products", func(r chi.Router) {
			r.Get("/", h.ListOrSearchProducts)
			r.Post("/", h.AddProduct)

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", h.UpdateProduct)
				r.Delete("/", h.RemoveProduct)
			})
		})

		r.Post("/api/v1/sales", h.ExecuteSale)
		r.Get("/api/v1/sales", h.SalesHistory)

		r.Get("/api/v1/reports", h.Report)
		r.Get("/api/v1/reports/low-stock", h.LowStock)
		r.Get("/api/v1/reports/total-value", h.TotalValue)
	})
	r.Get("/healthz", h.HealthCheck)
}

type credentialsDto struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and returns the account on success.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var creds credentialsDto
	if !h.decodeAndValidate(w, r, mLogger, &creds) {
		return
	}

	user, err := h.auth.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error authenticating user", "username", creds.Username, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	if user == nil {
		mLogger.WarnContext(r.Context(), "Login rejected", "username", creds.Username)
		web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	mLogger.InfoContext(r.Context(), "User logged in", "username", user.Username)
	web.RespondJSON(w, mLogger, http.StatusOK, user)
}

// Register creates a new account on behalf of the session user.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	actingUser, ok := web.SessionUser(w, r, mLogger)
	if !ok {
		return
	}
	var creds credentialsDto
	if !h.decodeAndValidate(w, r, mLogger, &creds) {
		return
	}

	user, err := h.auth.Register(r.Context(), creds.Username, creds.Password, &actingUser)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Error registering user", "username", creds.Username, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "User registered", "username", user.Username, "created_by", actingUser)
	web.RespondJSON(w, mLogger, http.StatusCreated, user)
}

// ListOrSearchProducts returns the full catalog, or the products matching the
// criterion/value query parameters when both are present.
func (h *Handler) ListOrSearchProducts(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	criterion := r.URL.Query().Get("criterion")
	value := r.URL.Query().Get("value")

	var (
		list []catalog.ProductDto
		err  error
	)
	if criterion == "" && value == "" {
		list, err = h.catalog.ListAll(r.Context())
	} else {
		list, err = h.catalog.Search(r.Context(), criterion, value)
	}
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving products", "criterion", criterion, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved products", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// AddProduct creates a new catalog entry.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var product catalog.ProductDto
	if !h.decodeAndValidate(w, r, mLogger, &product) {
		return
	}

	created, err := h.catalog.Add(r.Context(), product)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Error adding product", "id", product.ID, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Product added", slog.Int64("id", created.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// UpdateProduct applies a partial update to an existing product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var upd catalog.ProductUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &upd) {
		return
	}

	matched, err := h.catalog.Update(r.Context(), id, upd)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Error updating product", "id", id, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	if !matched {
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product updated", slog.Int64("id", id))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

// RemoveProduct deletes a product by id.
func (h *Handler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	deleted, err := h.catalog.Remove(r.Context(), id)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error deleting product", "id", id, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	if !deleted {
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %d not found", id))
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted", slog.Int64("id", id))
	web.RespondJSON(w, mLogger, http.StatusNoContent, nil)
}

type executeSaleDto struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity"   validate:"required,gt=0"`
}

// ExecuteSale sells the requested quantity on behalf of the session user.
func (h *Handler) ExecuteSale(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	actingUser, ok := web.SessionUser(w, r, mLogger)
	if !ok {
		return
	}
	var sale executeSaleDto
	if !h.decodeAndValidate(w, r, mLogger, &sale) {
		return
	}

	result, err := h.sales.Execute(r.Context(), sale.ProductID, sale.Quantity, &actingUser)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Error executing sale", "product_id", sale.ProductID, "quantity", sale.Quantity, "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Sale executed",
		"product_id", sale.ProductID, "quantity", sale.Quantity, "total", result.Total, "audit_recorded", result.AuditRecorded)
	web.RespondJSON(w, mLogger, http.StatusCreated, result)
}

// SalesHistory returns recorded sales, filtered by the user, from, to and
// limit query parameters. Calendar-date "to" values cover the whole day.
func (h *Handler) SalesHistory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	var filter sales.HistoryFilter
	if user := r.URL.Query().Get("user"); user != "" {
		filter.User = &user
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := parseTimeParam(raw, false)
		if err != nil {
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid from date: %s", raw))
			return
		}
		filter.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := parseTimeParam(raw, true)
		if err != nil {
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid to date: %s", raw))
			return
		}
		filter.To = &to
	}
	limit, ok := web.ParseValidateGtDefault(r, w, mLogger, "limit", 0, 0)
	if !ok {
		return
	}
	filter.Limit = limit

	list, err := h.sales.History(r.Context(), filter)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving sales history", "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved sales history", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Report returns the low-stock list and the total inventory value computed
// from one catalog snapshot.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	rep, err := h.reports.Generate(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error generating report", "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, rep)
}

// LowStock returns the products below the low-stock threshold.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	list, err := h.reports.LowStock(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error generating low stock report", "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// TotalValue returns the total inventory value.
func (h *Handler) TotalValue(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	total, err := h.reports.TotalValue(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error computing total inventory value", "error", err)
		h.respondServiceError(w, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]float64{"total_value": total})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation, responding with 400 on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, mLogger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ierrors.ErrInvalidInput):
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	case errors.Is(err, ierrors.ErrProductNotFound), errors.Is(err, ierrors.ErrUserNotFound):
		web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
	case errors.Is(err, ierrors.ErrProductExists), errors.Is(err, ierrors.ErrUserExists):
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
	case errors.Is(err, ierrors.ErrInsufficientStock):
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
	case errors.Is(err, ierrors.ErrStoreUnavailable):
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Store is temporarily unavailable")
	default:
		web.RespondError(w, mLogger, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// parseTimeParam accepts RFC3339 instants or calendar dates. A calendar date
// used as an upper bound is widened to the end of that day.
func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
