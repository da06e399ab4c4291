package server

import (
	"net/http"
	"strconv"

	"scoreboard/internal/intra"
)

// StudentsResponse is the body of GET /api/students.
type StudentsResponse struct {
	Students []intra.Student `json:"students"`
	Stats    intra.Stats     `json:"stats"`
}

// PoolersResponse is the body of GET /api/poolers.
type PoolersResponse struct {
	Poolers []intra.Pooler `json:"poolers"`
	Stats   intra.Stats    `json:"stats"`
}

func parseFilters(r *http.Request) (intra.Filters, error) {
	q := r.URL.Query()
	f := intra.Filters{Search: q.Get("search")}

	year, err := intra.ParseYear(q.Get("year"))
	if err != nil {
		return f, badRequest(err.Error())
	}
	f.Year = year

	if f.SortBy, f.SortOrder, err = intra.ParseSort(q.Get("sort"), q.Get("order")); err != nil {
		return f, badRequest(err.Error())
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &f.Page}, {"pageSize", &f.PageSize}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, badRequest(p.name + " must be a positive integer")
		}
		*p.dst = n
	}
	return f, nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.api.Me(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	students, err := s.api.Students(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StudentsResponse{Students: students, Stats: intra.StudentStats(students)})
}

func (s *Server) handlePoolers(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	poolers, err := s.api.Poolers(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PoolersResponse{Poolers: poolers, Stats: intra.PoolerStats(poolers)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.api.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
