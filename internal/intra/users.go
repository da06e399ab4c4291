package intra

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultPageSize is the page size requested from cursus listings.
const DefaultPageSize = 100

// SortField names the attribute a listing is sorted by.
type SortField string

const (
	SortByLevel SortField = "level"
	SortByName  SortField = "name"
	SortByLogin SortField = "login"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Filters narrow a student or pooler listing. Year 0 means all years.
type Filters struct {
	Search    string
	Year      int
	SortBy    SortField
	SortOrder SortOrder
	Page      int
	PageSize  int
}

// ParseYear accepts a year or "all" (and "") for no filter.
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}

// ParseSort validates a sort field and order. Empty values are allowed.
func ParseSort(field, order string) (SortField, SortOrder, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(field)))
	switch f {
	case "", SortByLevel, SortByName, SortByLogin:
	default:
		return "", "", fmt.Errorf("invalid sort field %q (want level, name or login)", field)
	}
	o := SortOrder(strings.ToLower(strings.TrimSpace(order)))
	switch o {
	case "", SortAsc, SortDesc:
	default:
		return "", "", fmt.Errorf("invalid sort order %q (want asc or desc)", order)
	}
	return f, o, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var u UserProfile
	if err := c.Get(ctx, "/v2/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// User returns a user by numeric ID or login.
func (c *Client) User(ctx context.Context, idOrLogin string) (*UserProfile, error) {
	if strings.TrimSpace(idOrLogin) == "" {
		return nil, fmt.Errorf("user id or login is required")
	}
	var u UserProfile
	if err := c.Get(ctx, "/v2/users/"+url.PathEscape(idOrLogin), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CursusUsers lists users of a cursus, one page at a time. Search matches
// on login.
func (c *Client) CursusUsers(ctx context.Context, cursusID int, f Filters) ([]UserProfile, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search[login]", f.Search)
	}
	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	q.Set("page[size]", strconv.Itoa(size))
	if f.Page > 0 {
		q.Set("page[number]", strconv.Itoa(f.Page))
	}

	var users []UserProfile
	endpoint := fmt.Sprintf("/v2/cursus/%d/users?%s", cursusID, q.Encode())
	if err := c.Get(ctx, endpoint, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Students lists main-cursus members matching f.
func (c *Client) Students(ctx context.Context, f Filters) ([]Student, error) {
	users, err := c.CursusUsers(ctx, CursusMain, f)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch students: %w", err)
	}
	students := make([]Student, 0, len(users))
	for i := range users {
		s := NewStudent(&users[i])
		if f.Year != 0 && s.PromoYear != f.Year {
			continue
		}
		students = append(students, s)
	}
	SortStudents(students, f.SortBy, f.SortOrder)
	return students, nil
}

// Poolers lists piscine participants matching f.
func (c *Client) Poolers(ctx context.Context, f Filters) ([]Pooler, error) {
	users, err := c.CursusUsers(ctx, CursusPiscine, f)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch poolers: %w", err)
	}
	poolers := make([]Pooler, 0, len(users))
	for i := range users {
		p := NewPooler(&users[i])
		if f.Year != 0 && p.PoolYear != f.Year {
			continue
		}
		poolers = append(poolers, p)
	}
	SortPoolers(poolers, f.SortBy, f.SortOrder)
	return poolers, nil
}

// Summary is the dashboard overview.
type Summary struct {
	Me       *UserProfile `json:"me"`
	Students Stats        `json:"students"`
	Poolers  Stats        `json:"poolers"`
}

// Summary fetches the profile and both listings concurrently. The limiter
// still spaces the requests out.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var (
		sum      Summary
		students []Student
		poolers  []Pooler
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		me, err := c.Me(gctx)
		sum.Me = me
		return err
	})
	g.Go(func() error {
		var err error
		students, err = c.Students(gctx, Filters{})
		return err
	})
	g.Go(func() error {
		var err error
		poolers, err = c.Poolers(gctx, Filters{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sum.Students = StudentStats(students)
	sum.Poolers = PoolerStats(poolers)
	return &sum, nil
}

func presence(u *UserProfile) PresenceStatus {
	st := PresenceStatus{Online: u.Location != "", Location: u.Location}
	if !u.UpdatedAt.IsZero() {
		t := u.UpdatedAt
		st.LastSeen = &t
	}
	return st
}

func projects(u *UserProfile) []ProjectSummary {
	out := make([]ProjectSummary, 0, len(u.ProjectsUsers))
	for _, pu := range u.ProjectsUsers {
		out = append(out, ProjectSummary{
			ID:        strconv.Itoa(pu.Project.ID),
			Name:      pu.Project.Name,
			FinalMark: pu.FinalMark,
			Status:    pu.Status,
		})
	}
	return out
}

// NewStudent projects a user onto the student view. Level comes from the
// main cursus, falling back to the first cursus listed.
func NewStudent(u *UserProfile) Student {
	cu := u.Cursus(CursusMain)
	if cu == nil && len(u.CursusUsers) > 0 {
		cu = &u.CursusUsers[0]
	}
	var level float64
	if cu != nil {
		level = cu.Level
	}

	cursus := make([]CursusSummary, 0, len(u.CursusUsers))
	for _, c := range u.CursusUsers {
		cursus = append(cursus, CursusSummary{CursusID: c.CursusID, Level: c.Level, Grade: c.Grade})
	}

	return Student{
		ID:               strconv.Itoa(u.ID),
		Login:            u.Login,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		DisplayName:      u.DisplayName,
		Email:            u.Email,
		Avatar:           u.Avatar(),
		Level:            level,
		PromoYear:        u.CreatedAt.UTC().Year(),
		Wallet:           u.Wallet,
		EvaluationPoints: u.CorrectionPoint,
		Status:           presence(u),
		ProfileURL:       ProfileURLBase + u.Login,
		Campus:           u.CampusName(),
		CursusUsers:      cursus,
		Projects:         projects(u),
	}
}

// NewPooler projects a user onto the pooler view using the piscine cursus.
func NewPooler(u *UserProfile) Pooler {
	p := Pooler{
		ID:            strconv.Itoa(u.ID),
		Login:         u.Login,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		Avatar:        u.Avatar(),
		PoolYear:      u.CreatedAt.UTC().Year(),
		PoolMonth:     u.CreatedAt.UTC().Format("January 2006"),
		Status:        presence(u),
		ProfileURL:    ProfileURLBase + u.Login,
		Campus:        u.CampusName(),
		PoolStartDate: u.CreatedAt,
		Projects:      projects(u),
	}
	if cu := u.Cursus(CursusPiscine); cu != nil {
		p.Level = cu.Level
		p.PoolEndDate = cu.EndAt
	}
	return p
}

func less[T float64 | string](a, b T, order SortOrder) bool {
	if order == SortAsc {
		return a < b
	}
	return a > b
}

// SortStudents sorts in place. An empty field leaves the API order; an
// empty order means descending.
func SortStudents(s []Student, field SortField, order SortOrder) {
	if field == "" {
		return
	}
	sort.SliceStable(s, func(i, j int) bool {
		switch field {
		case SortByLevel:
			return less(s[i].Level, s[j].Level, order)
		case SortByName:
			return less(strings.ToLower(s[i].DisplayName), strings.ToLower(s[j].DisplayName), order)
		default:
			return less(s[i].Login, s[j].Login, order)
		}
	})
}

// SortPoolers sorts in place with the same rules as SortStudents.
func SortPoolers(p []Pooler, field SortField, order SortOrder) {
	if field == "" {
		return
	}
	sort.SliceStable(p, func(i, j int) bool {
		switch field {
		case SortByLevel:
			return less(p[i].Level, p[j].Level, order)
		case SortByName:
			return less(strings.ToLower(p[i].DisplayName), strings.ToLower(p[j].DisplayName), order)
		default:
			return less(p[i].Login, p[j].Login, order)
		}
	})
}

func levelStats(levels []float64, online int) Stats {
	st := Stats{TotalCount: len(levels), OnlineCount: online}
	if len(levels) == 0 {
		return st
	}
	var sum float64
	for _, l := range levels {
		sum += l
		if l > st.HighestLevel {
			st.HighestLevel = l
		}
	}
	st.AverageLevel = sum / float64(len(levels))
	return st
}

// StudentStats aggregates a student listing.
func StudentStats(students []Student) Stats {
	levels := make([]float64, len(students))
	online := 0
	for i, s := range students {
		levels[i] = s.Level
		if s.Status.Online {
			online++
		}
	}
	return levelStats(levels, online)
}

// PoolerStats aggregates a pooler listing. Every listed pooler counts as in
// progress.
func PoolerStats(poolers []Pooler) Stats {
	levels := make([]float64, len(poolers))
	online := 0
	for i, p := range poolers {
		levels[i] = p.Level
		if p.Status.Online {
			online++
		}
	}
	st := levelStats(levels, online)
	st.InProgressCount = len(poolers)
	return st
}
