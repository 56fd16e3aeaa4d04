package handlers

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/xdido2/finance-tracker-backend/internal/blob"
	"github.com/xdido2/finance-tracker-backend/internal/httpx"
	"github.com/xdido2/finance-tracker-backend/internal/models"
	"github.com/xdido2/finance-tracker-backend/internal/store"
	"github.com/xdido2/finance-tracker-backend/internal/validation"
)

const maxUploadSize = 32 << 20

type BillHandler struct {
	Bills  *store.BillStore
	Blobs  blob.Store
	Folder string
}

// NewBillHandler builds the bill handler. blobs may be nil; receipt-image
// upload and presigning are then disabled.
func NewBillHandler(bills *store.BillStore, blobs blob.Store, folder string) *BillHandler {
	if folder == "" {
		folder = "bills"
	}
	return &BillHandler{Bills: bills, Blobs: blobs, Folder: folder}
}

type billForm struct {
	Title      string
	Amount     float64
	Currency   string
	UserID     string
	CategoryID *uuid.UUID
	file       multipart.File
	fileHeader *multipart.FileHeader
}

// parseBillForm accepts JSON or multipart/urlencoded form input. Only the
// form path can carry a file.
func parseBillForm(r *http.Request) (*billForm, string) {
	f := &billForm{}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			Title      string     `json:"title"`
			Amount     float64    `json:"amount"`
			Currency   string     `json:"currency"`
			UserID     string     `json:"user_id"`
			CategoryID *uuid.UUID `json:"category_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, "invalid_json"
		}
		f.Title = body.Title
		f.Amount = body.Amount
		f.Currency = body.Currency
		f.UserID = body.UserID
		f.CategoryID = body.CategoryID
		return f, ""
	}
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, "invalid_form"
		}
		if file, header, err := r.FormFile("file"); err == nil {
			f.file = file
			f.fileHeader = header
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, "invalid_form"
	}
	f.Title = r.FormValue("title")
	f.Currency = r.FormValue("currency")
	f.UserID = r.FormValue("user_id")
	if v := r.FormValue("amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, "invalid_amount"
		}
		f.Amount = amount
	}
	if v := r.FormValue("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, "invalid_category_id"
		}
		f.CategoryID = &id
	}
	return f, ""
}

// Create: POST /bills — JSON or multipart form; an attached file is uploaded
// keyed by the new bill's id and its storage key recorded in a follow-up
// update.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	f, reason := parseBillForm(r)
	if reason != "" {
		httpx.JSONError(w, http.StatusBadRequest, reason, nil)
		return
	}
	if f.file != nil {
		defer f.file.Close()
	}
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	v := validation.Violations{}
	validation.Required("title", f.Title, v)
	validation.MaxLen("title", f.Title, 255, v)
	validation.CurrencyCode("currency", f.Currency, v)
	validation.NonNegativeFloat("amount", f.Amount, v)
	userID, err := uuid.Parse(f.UserID)
	if err != nil {
		v["user_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	bill, err := h.Bills.Create(r.Context(), store.BillInput{
		UserID:     userID,
		CategoryID: f.CategoryID,
		Title:      f.Title,
		Amount:     f.Amount,
		Currency:   f.Currency,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if f.file != nil && h.Blobs != nil {
		key := blob.Key(h.Folder, bill.ID.String(), f.fileHeader.Filename)
		if err := h.Blobs.Upload(r.Context(), key, f.fileHeader.Header.Get("Content-Type"), f.file); err != nil {
			slog.Error("receipt upload failed", "bill_id", bill.ID, "error", err)
			httpx.JSONError(w, http.StatusInternalServerError, "blob_upload_failed", nil)
			return
		}
		if bill, err = h.Bills.SetImageKey(r.Context(), bill.ID, key); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	h.respond(w, r, http.StatusCreated, bill)
}

// Get: GET /bills/{id} — the stored image key is exchanged for a presigned
// URL, never exposed directly.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	bill, err := h.Bills.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.respond(w, r, http.StatusOK, bill)
}

// List: GET /bills?skip&limit — non-deleted rows only.
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	bills, err := h.Bills.List(r.Context(), skip, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]models.Bill, 0, len(bills))
	for _, bill := range bills {
		b := bill
		if !h.presign(w, r, &b) {
			return
		}
		out = append(out, b)
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Update: PUT /bills/{id} — partial update, optional file replace.
func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	f, reason := parseBillForm(r)
	if reason != "" {
		httpx.JSONError(w, http.StatusBadRequest, reason, nil)
		return
	}
	if f.file != nil {
		defer f.file.Close()
	}
	patch := store.BillPatch{CategoryID: f.CategoryID}
	v := validation.Violations{}
	if f.Title != "" {
		validation.MaxLen("title", f.Title, 255, v)
		patch.Title = &f.Title
	}
	if f.Currency != "" {
		f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
		validation.CurrencyCode("currency", f.Currency, v)
		patch.Currency = &f.Currency
	}
	if f.Amount != 0 {
		validation.NonNegativeFloat("amount", f.Amount, v)
		patch.Amount = &f.Amount
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	bill, err := h.Bills.Update(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if f.file != nil && h.Blobs != nil {
		key := blob.Key(h.Folder, bill.ID.String(), f.fileHeader.Filename)
		if err := h.Blobs.Upload(r.Context(), key, f.fileHeader.Header.Get("Content-Type"), f.file); err != nil {
			slog.Error("receipt upload failed", "bill_id", bill.ID, "error", err)
			httpx.JSONError(w, http.StatusInternalServerError, "blob_upload_failed", nil)
			return
		}
		if bill, err = h.Bills.SetImageKey(r.Context(), bill.ID, key); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	h.respond(w, r, http.StatusOK, bill)
}

// Delete: DELETE /bills/{id} — soft delete plus best-effort blob cleanup.
func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.Bills.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	httpx.NoContent(w)
}

// presign swaps the bill's storage key for a time-limited URL in place.
// Returns false after writing an error response.
func (h *BillHandler) presign(w http.ResponseWriter, r *http.Request, bill *models.Bill) bool {
	if bill.BillImageKey == nil || *bill.BillImageKey == "" || h.Blobs == nil {
		return true
	}
	url, err := h.Blobs.PresignGet(r.Context(), *bill.BillImageKey)
	if err != nil {
		slog.Error("presign failed", "bill_id", bill.ID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "blob_presign_failed", nil)
		return false
	}
	bill.BillImageKey = &url
	return true
}

func (h *BillHandler) respond(w http.ResponseWriter, r *http.Request, status int, bill *models.Bill) {
	b := *bill
	if !h.presign(w, r, &b) {
		return
	}
	httpx.JSON(w, status, b)
}
