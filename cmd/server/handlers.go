package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/costestimator/internal/catalog"
	"github.com/Simplici0/costestimator/internal/estimate"
	"github.com/Simplici0/costestimator/internal/export"
	"github.com/Simplici0/costestimator/internal/pricing"
	"github.com/Simplici0/costestimator/internal/session"
	"github.com/Simplici0/costestimator/internal/store"
)

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "store": s.store.Driver()})
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.session.Catalog().Categories()})
}

func (s *server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := s.session.Search(query)
	if results == nil {
		results = []catalog.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

func (s *server) handleCatalogRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rules := s.session.Catalog()
	rule, ok := rules.FindRule(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown action %q", id)})
		return
	}
	category, _ := rules.CategoryOf(id)
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "rule": rule})
}

// handleCatalogReload re-reads the catalog file and re-prices the live
// estimate against it. A file that fails to load leaves the old catalog in place.
func (s *server) handleCatalogReload(w http.ResponseWriter, r *http.Request) {
	rules, err := loadCatalog(s.catalogPath)
	if err != nil {
		s.writeError(w, "handleCatalogReload", fmt.Errorf("reload catalog: %w", err))
		return
	}
	if err := s.session.SetCatalog(rules); err != nil {
		s.writeError(w, "handleCatalogReload", err)
		return
	}
	s.logger.WithField("rules", rules.Len()).Info("catalog reloaded")
	writeJSON(w, http.StatusOK, map[string]any{"rules": rules.Len(), "estimate": s.view()})
}

type priceResponse struct {
	Rule     string  `json:"rule"`
	Quantity float64 `json:"quantity"`
	pricing.Resolution
	Totals pricing.ActionTotals `json:"totals"`
}

// handlePrice resolves one rule without touching the live estimate. Unknown
// rules and bad numbers price as zero rather than failing.
func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rule := q.Get("rule")
	quantity := estimate.ParseAmount(q.Get("quantity"))
	unitPrice := estimate.ParseAmount(q.Get("unitPrice"))

	res := pricing.Resolve(s.session.Catalog(), rule, quantity)
	writeJSON(w, http.StatusOK, priceResponse{
		Rule:       rule,
		Quantity:   quantity,
		Resolution: res,
		Totals: pricing.RollupAction(pricing.ActionInput{
			Quantity:     quantity,
			UnitPrice:    unitPrice,
			MaterialCost: res.TotalMaterialCost,
		}),
	})
}

type estimateView struct {
	Estimate  estimate.Snapshot      `json:"estimate"`
	CurrentID string                 `json:"currentId,omitempty"`
	Issues    []estimate.Issue       `json:"issues"`
	Autosave  session.AutosaveStatus `json:"autosave"`
	Notices   []session.Notice       `json:"notices"`
}

func (s *server) view() estimateView {
	issues := s.session.Validate()
	if issues == nil {
		issues = []estimate.Issue{}
	}
	notices := s.session.Notices()
	if notices == nil {
		notices = []session.Notice{}
	}
	return estimateView{
		Estimate:  s.session.Snapshot(),
		CurrentID: s.session.CurrentID(),
		Issues:    issues,
		Autosave:  s.session.AutosaveStatus(),
		Notices:   notices,
	}
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view())
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	writeJSON(w, http.StatusOK, s.view())
}

// update applies fn to the live estimate and answers with the new view.
func (s *server) update(w http.ResponseWriter, funcName string, status int, fn func(e *estimate.Estimate) error) {
	if err := s.session.Update(fn); err != nil {
		s.writeError(w, funcName, err)
		return
	}
	writeJSON(w, status, s.view())
}

type projectRequest struct {
	Name   *string `json:"projectName"`
	Date   *string `json:"projectDate"`
	Client *string `json:"projectClient"`
}

func (s *server) handleProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleProject", err)
		return
	}
	s.update(w, "handleProject", http.StatusOK, func(e *estimate.Estimate) error {
		if req.Name != nil {
			e.Project.Name = strings.TrimSpace(*req.Name)
		}
		if req.Date != nil {
			e.Project.Date = strings.TrimSpace(*req.Date)
		}
		if req.Client != nil {
			e.Project.Client = strings.TrimSpace(*req.Client)
		}
		return nil
	})
}

type costsRequest struct {
	PermitFees         *amount `json:"permitFees"`
	EquipmentCosts     *amount `json:"equipmentCosts"`
	OverheadCosts      *amount `json:"overheadCosts"`
	ContingencyPercent *amount `json:"contingencyPercent"`
}

func (s *server) handleCosts(w http.ResponseWriter, r *http.Request) {
	var req costsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleCosts", err)
		return
	}
	s.update(w, "handleCosts", http.StatusOK, func(e *estimate.Estimate) error {
		costs := e.Costs
		setIf(&costs.PermitFees, req.PermitFees)
		setIf(&costs.EquipmentCosts, req.EquipmentCosts)
		setIf(&costs.OverheadCosts, req.OverheadCosts)
		setIf(&costs.ContingencyPercent, req.ContingencyPercent)
		e.SetCosts(costs)
		return nil
	})
}

func setIf(dst *float64, v *amount) {
	if v != nil {
		*dst = float64(*v)
	}
}

type locationRequest struct {
	Name string `json:"name"`
}

func (s *server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleAddLocation", err)
		return
	}
	s.update(w, "handleAddLocation", http.StatusCreated, func(e *estimate.Estimate) error {
		_, err := e.AddLocation(strings.TrimSpace(req.Name))
		return err
	})
}

func (s *server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := pathID(r, "loc")
	if err != nil {
		s.writeError(w, "handleUpdateLocation", err)
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleUpdateLocation", err)
		return
	}
	s.update(w, "handleUpdateLocation", http.StatusOK, func(e *estimate.Estimate) error {
		return e.RenameLocation(loc, strings.TrimSpace(req.Name))
	})
}

func (s *server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := pathID(r, "loc")
	if err != nil {
		s.writeError(w, "handleDeleteLocation", err)
		return
	}
	s.update(w, "handleDeleteLocation", http.StatusOK, func(e *estimate.Estimate) error {
		return e.RemoveLocation(loc)
	})
}

func (s *server) handleAddAction(w http.ResponseWriter, r *http.Request) {
	loc, err := pathID(r, "loc")
	if err != nil {
		s.writeError(w, "handleAddAction", err)
		return
	}
	s.update(w, "handleAddAction", http.StatusCreated, func(e *estimate.Estimate) error {
		_, err := e.AddAction(loc)
		return err
	})
}

type actionRequest struct {
	RuleID      *string `json:"actionId"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Quantity    *amount `json:"quantity"`
	Unit        *string `json:"unit"`
	UnitPrice   *amount `json:"unitPrice"`
}

func (s *server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	loc, err := pathID(r, "loc")
	if err != nil {
		s.writeError(w, "handleUpdateAction", err)
		return
	}
	act, err := pathID(r, "act")
	if err != nil {
		s.writeError(w, "handleUpdateAction", err)
		return
	}
	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleUpdateAction", err)
		return
	}
	s.update(w, "handleUpdateAction", http.StatusOK, func(e *estimate.Estimate) error {
		_, err := e.UpdateAction(loc, act, estimate.ActionUpdate{
			RuleID:      req.RuleID,
			Name:        req.Name,
			Description: req.Description,
			Quantity:    req.Quantity.float(),
			Unit:        req.Unit,
			UnitPrice:   req.UnitPrice.float(),
		})
		return err
	})
}

func (s *server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	loc, err := pathID(r, "loc")
	if err != nil {
		s.writeError(w, "handleDeleteAction", err)
		return
	}
	act, err := pathID(r, "act")
	if err != nil {
		s.writeError(w, "handleDeleteAction", err)
		return
	}
	s.update(w, "handleDeleteAction", http.StatusOK, func(e *estimate.Estimate) error {
		return e.RemoveAction(loc, act)
	})
}

func (s *server) handleSavedList(w http.ResponseWriter, r *http.Request) {
	list, err := s.session.List(r.Context())
	if err != nil {
		s.writeError(w, "handleSavedList", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estimates": list})
}

type saveRequest struct {
	Name string `json:"name"`
}

func (s *server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, "handleSave", err)
		return
	}
	summary, err := s.session.Save(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, "handleSave", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"saved": summary, "notices": s.session.Notices()})
}

type savedResponse struct {
	store.Summary
	Estimate json.RawMessage `json:"estimate"`
}

func (s *server) handleSavedGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, "handleSavedGet", err)
		return
	}
	writeJSON(w, http.StatusOK, savedResponse{
		Summary:  store.Summary{ID: rec.ID, Name: rec.Name, SavedAt: rec.SavedAt, GrandTotal: rec.GrandTotal},
		Estimate: json.RawMessage(rec.Payload),
	})
}

func (s *server) handleSavedDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "handleSavedDelete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSavedLoad(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "handleSavedLoad", err)
		return
	}
	writeJSON(w, http.StatusOK, s.view())
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, "handleExport", badRequest("%v", err))
		return
	}
	body, filename, err := s.session.Export(format)
	if err != nil {
		s.writeError(w, "handleExport", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
