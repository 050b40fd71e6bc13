package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ogurasousui/business-license-api/internal/adapters/licensedto"
	"github.com/ogurasousui/business-license-api/internal/core/license"
	"github.com/ogurasousui/business-license-api/internal/platform/logging"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type operation string

const (
	createOperation      operation = "licensesCreate"
	searchOperation      operation = "licensesSearch"
	getOperation         operation = "licensesGet"
	getByNumberOperation operation = "licensesGetByNumber"
	updateOperation      operation = "licensesUpdate"
	deleteOperation      operation = "licensesDelete"
)

// LicenseHandler は許可サービスを REST API に公開します。
type LicenseHandler struct {
	svc    license.UseCase
	logger *zap.Logger
}

// NewLicenseHandler は LicenseHandler を生成します。
func NewLicenseHandler(svc license.UseCase, logger *zap.Logger) *LicenseHandler {
	if svc == nil {
		panic("license service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LicenseHandler{svc: svc, logger: logger}
}

// Routes は /api/v1/licenses 配下のルートを返します。
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/search", h.search)
	r.Get("/number/{license_number}", h.getByNumber)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	return r
}

func (h *LicenseHandler) create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	in, err := licensedto.DecodeCreate(body)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	created, err := h.svc.CreateLicense(r.Context(), in)
	if err != nil {
		h.writeError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", "/api/v1/licenses/"+created.ID)
	writeJSON(w, http.StatusCreated, licensedto.FromLicense(created))
}

func (h *LicenseHandler) search(w http.ResponseWriter, r *http.Request) {
	params := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	in, err := licensedto.DecodeSearch(params)
	if err != nil {
		h.writeError(r.Context(), w, err, searchOperation)
		return
	}

	result, err := h.svc.SearchLicenses(r.Context(), in)
	if err != nil {
		h.writeError(r.Context(), w, err, searchOperation)
		return
	}

	writeJSON(w, http.StatusOK, licensedto.FromResult(result))
}

func (h *LicenseHandler) get(w http.ResponseWriter, r *http.Request) {
	found, err := h.svc.GetLicense(r.Context(), license.GetLicenseInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.writeError(r.Context(), w, err, getOperation)
		return
	}

	writeJSON(w, http.StatusOK, licensedto.FromLicense(found))
}

func (h *LicenseHandler) getByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "license_number")
	found, err := h.svc.GetLicenseByNumber(r.Context(), license.GetLicenseByNumberInput{LicenseNumber: number})
	if err != nil {
		h.writeError(r.Context(), w, err, getByNumberOperation)
		return
	}

	writeJSON(w, http.StatusOK, licensedto.FromLicense(found))
}

func (h *LicenseHandler) update(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	patch, err := licensedto.DecodeUpdate(body)
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	updated, err := h.svc.UpdateLicense(r.Context(), license.UpdateLicenseInput{ID: chi.URLParam(r, "id"), Fields: patch})
	if err != nil {
		h.writeError(r.Context(), w, err, updateOperation)
		return
	}

	writeJSON(w, http.StatusOK, licensedto.FromLicense(updated))
}

func (h *LicenseHandler) delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteLicense(r.Context(), license.DeleteLicenseInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.writeError(r.Context(), w, err, deleteOperation)
		return
	}
	if !deleted {
		h.writeError(r.Context(), w, license.ErrLicenseNotFound, deleteOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var errMalformedBody = errors.New("request body must be a JSON object")

func decodeBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, errMalformedBody
	}
	if body == nil {
		return nil, errMalformedBody
	}
	return body, nil
}

type errorResponse struct {
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

func (h *LicenseHandler) writeError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, resp := classifyError(err)

	logger := logging.FromContext(ctx, h.logger)
	fields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("license operation failed", fields...)
	case status == http.StatusNotFound:
		logger.Info("license not found", fields...)
	default:
		logger.Warn("license request rejected", fields...)
	}

	writeJSON(w, status, resp)
}

func classifyError(err error) (int, errorResponse) {
	var validationErr *license.ValidationError
	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, errorResponse{Detail: err.Error()}
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorResponse{
			Detail: validationErr.Field + ": " + validationErr.Reason,
			Field:  validationErr.Field,
		}
	case errors.Is(err, license.ErrValidation):
		return http.StatusBadRequest, errorResponse{Detail: strings.TrimPrefix(err.Error(), "license: ")}
	case errors.Is(err, license.ErrLicenseNumberAlreadyExists):
		return http.StatusConflict, errorResponse{Detail: "License number already exists"}
	case errors.Is(err, license.ErrLicenseNotFound):
		return http.StatusNotFound, errorResponse{Detail: "License not found"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorResponse{Detail: "request timed out"}
	default:
		return http.StatusInternalServerError, errorResponse{Detail: "internal error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
