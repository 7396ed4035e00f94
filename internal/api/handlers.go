package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
)

const scrapeDateLayout = "2006-01-02T15:04:05"

func (s *server) lastScrape(w http.ResponseWriter, r *http.Request) {
	scope, _, err := scopeParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	reports, err := s.store.GetReports(r.Context(), ports.ReportFilter{
		Name:   domain.ReportName,
		Scope:  &scope,
		Status: domain.StatusDone,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(reports) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":        "no_result",
			"searched_date": searchedDate(scope),
		})
		return
	}

	last := reports[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                    "ok",
		"searched_date":             searchedDate(scope),
		"last_scrape_date":          last.CreatedAt.UTC().Format(scrapeDateLayout),
		"last_scrape_results_count": last.Count(),
	})
}

func (s *server) count(w http.ResponseWriter, r *http.Request) {
	scope, _, err := scopeParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	n, err := s.store.CountArticles(r.Context(), &scope)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"searched_date": searchedDate(scope),
		"count":         n,
	})
}

func (s *server) searchDate(w http.ResponseWriter, r *http.Request) {
	scope, _, err := scopeParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	if s.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": "collections are disabled"})
		return
	}

	id, err := s.search(chi.URLParam(r, "recipient"), scope)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":        "ok",
		"searched_date": searchedDate(scope),
		"ref_job":       id,
	})
}

func (s *server) articles(w http.ResponseWriter, r *http.Request) {
	scope, ok, err := scopeParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}
	limit, err := queryInt(r, "limit", defaultArticleLimit)
	if err != nil {
		badRequest(w, err)
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		badRequest(w, err)
		return
	}

	query := ports.ArticleQuery{Limit: limit, Skip: skip}
	if ok {
		query.Scope = &scope
	}
	articles, err := s.store.GetArticles(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, newArticleView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"count":    len(views),
		"articles": views,
	})
}

func (s *server) reports(w http.ResponseWriter, r *http.Request) {
	scope, ok, err := scopeParam(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	var filter ports.ReportFilter
	if ok {
		filter.Scope = &scope
	}
	reports, err := s.store.GetReports(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]reportView, 0, len(reports))
	for _, rep := range reports {
		views = append(views, newReportView(rep))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"count":   len(views),
		"reports": views,
	})
}

func (s *server) job(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "error": "no job runner"})
		return
	}
	info, ok := s.jobs.Status(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "error": "unknown job"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"job": map[string]string{
			"id":    info.ID,
			"name":  info.Name,
			"state": string(info.Status),
			"error": info.Error,
		},
	})
}

type articleView struct {
	URL      string                 `json:"url"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body,omitempty"`
	Channel  string                 `json:"channel"`
	PubDate  *time.Time             `json:"pub_date"`
	RefDates []domain.DateReference `json:"ref_dates"`
}

func newArticleView(a domain.Article) articleView {
	v := articleView{URL: a.URL, Title: a.Title, Body: a.Body, Channel: a.Channel, RefDates: a.RefDates}
	if a.HasPublicationDate() {
		t := a.PublishedAt.UTC()
		v.PubDate = &t
	}
	if v.RefDates == nil {
		v.RefDates = []domain.DateReference{}
	}
	return v
}

type reportView struct {
	ID           string         `json:"id"`
	Date         time.Time      `json:"date"`
	Name         string         `json:"name"`
	Collector    string         `json:"collector"`
	Status       string         `json:"status"`
	SearchedDate []any          `json:"searched_date"`
	Channels     []string       `json:"channels"`
	Meta         domain.Outcome `json:"meta"`
}

func newReportView(r domain.RunReport) reportView {
	return reportView{
		ID:           r.ID,
		Date:         r.CreatedAt.UTC(),
		Name:         r.Name,
		Collector:    r.CollectorType,
		Status:       string(r.Status()),
		SearchedDate: searchedDate(r.Scope),
		Channels:     r.Channels,
		Meta:         r.Outcome,
	}
}
