package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"tally/internal/autocomplete"
	"tally/internal/charts"
	"tally/internal/engine"
	"tally/internal/filter"
	"tally/internal/log"
	"tally/internal/sorting"
	"tally/internal/views"
)

type categoriesResponse struct {
	Generation uint64               `json:"generation"`
	Categories []views.CategoryView `json:"categories"`
	Credits    []views.Credit       `json:"credits"`
}

type sectionsResponse struct {
	Generation uint64              `json:"generation"`
	Sections   []views.SectionView `json:"sections"`
}

type excludedResponse struct {
	Generation uint64             `json:"generation"`
	Excluded   views.ExcludedView `json:"excluded"`
}

type totalsResponse struct {
	Generation uint64       `json:"generation"`
	Totals     views.Totals `json:"totals"`
	Months     []string     `json:"months"`
}

type chartsResponse struct {
	Generation uint64         `json:"generation"`
	Charts     *charts.Charts `json:"charts"`
}

type filtersResponse struct {
	Generation uint64     `json:"generation"`
	Filters    filter.Set `json:"filters"`
	Encoded    string     `json:"encoded"`
	Added      *bool      `json:"added,omitempty"`
}

type stateBody struct {
	Encoded string `json:"encoded"`
}

type sortBody struct {
	Column string `json:"column"`
}

type sortResponse struct {
	Generation uint64         `json:"generation"`
	Section    string         `json:"section"`
	Sort       sorting.Config `json:"sort"`
}

type autocompleteResponse struct {
	Query   string               `json:"query"`
	Entries []autocomplete.Entry `json:"entries"`
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, http.StatusOK, categoriesResponse{
		Generation: snap.Generation,
		Categories: snap.Views.Categories,
		Credits:    snap.Views.Credits,
	})
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, http.StatusOK, sectionsResponse{Generation: snap.Generation, Sections: snap.Views.Sections})
}

func (s *Server) handleExcluded(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, http.StatusOK, excludedResponse{Generation: snap.Generation, Excluded: snap.Views.Excluded})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, http.StatusOK, totalsResponse{
		Generation: snap.Generation,
		Totals:     snap.Views.Totals,
		Months:     snap.Views.Months,
	})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, http.StatusOK, chartsResponse{Generation: snap.Generation, Charts: snap.Charts})
}

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, filtersOf(s.service.Snapshot()))
}

func (s *Server) handleAddFilter(w http.ResponseWriter, r *http.Request) {
	var p filter.Predicate
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if p.Mode == "" {
		p.Mode = filter.ModeInclude
	}
	p.Type = filter.Type(strings.ToLower(strings.TrimSpace(string(p.Type))))
	p.Text = strings.TrimSpace(p.Text)

	snap, added, err := s.service.AddFilter(r.Context(), p)
	if !s.committed(w, r, snap, err) {
		return
	}
	resp := filtersOf(snap)
	resp.Added = &added
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.ClearFilters(r.Context())
	if s.committed(w, r, snap, err) {
		writeJSON(w, http.StatusOK, filtersOf(snap))
	}
}

func (s *Server) handleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	i, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.service.RemoveFilter(r.Context(), i)
	if s.committed(w, r, snap, err) {
		writeJSON(w, http.StatusOK, filtersOf(snap))
	}
}

func (s *Server) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	i, err := indexParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.service.ToggleFilterMode(r.Context(), i)
	if s.committed(w, r, snap, err) {
		writeJSON(w, http.StatusOK, filtersOf(snap))
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateBody{Encoded: s.service.Snapshot().Encoded})
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	var body stateBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.service.ApplyEncoded(r.Context(), body.Encoded)
	if s.committed(w, r, snap, err) {
		writeJSON(w, http.StatusOK, filtersOf(snap))
	}
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	section, err := url.PathUnescape(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, r, errBadRequest)
		return
	}
	var body sortBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	column, err := sorting.ParseColumn(body.Column)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}
	snap, err := s.service.ToggleSort(r.Context(), section, column)
	if s.committed(w, r, snap, err) {
		writeJSON(w, http.StatusOK, sortResponse{
			Generation: snap.Generation,
			Section:    section,
			Sort:       snap.Sorts.Get(section),
		})
	}
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	entries := s.service.Autocomplete(q)
	if entries == nil {
		entries = []autocomplete.Entry{}
	}
	writeJSON(w, http.StatusOK, autocompleteResponse{Query: q, Entries: entries})
}

// committed writes the error response when the mutation was rejected. A
// failure after the commit (persisting or publishing) is only logged, since
// the new generation already stands.
func (s *Server) committed(w http.ResponseWriter, r *http.Request, snap *engine.Snapshot, err error) bool {
	if snap == nil {
		if err == nil {
			err = errBadRequest
		}
		writeError(w, r, err)
		return false
	}
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "View committed with side-effect errors",
			log.FieldGeneration, snap.Generation,
			log.FieldError, err,
		)
	}
	return true
}

func filtersOf(snap *engine.Snapshot) filtersResponse {
	filters := snap.Filters
	if filters == nil {
		filters = filter.Set{}
	}
	return filtersResponse{Generation: snap.Generation, Filters: filters, Encoded: snap.Encoded}
}
