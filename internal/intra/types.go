package intra

import "time"

// Cursus IDs on the 42 intranet.
const (
	CursusMain    = 21
	CursusPiscine = 9
)

// UserProfile is the user resource returned by /v2/me and /v2/users/{id}.
type UserProfile struct {
	ID              int           `json:"id"`
	Login           string        `json:"login"`
	Email           string        `json:"email"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	DisplayName     string        `json:"displayname"`
	Image           Image         `json:"image"`
	Wallet          int           `json:"wallet"`
	CorrectionPoint int           `json:"correction_point"`
	PoolMonth       string        `json:"pool_month,omitempty"`
	PoolYear        string        `json:"pool_year,omitempty"`
	Location        string        `json:"location,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Campus          []Campus      `json:"campus,omitempty"`
	CursusUsers     []CursusUser  `json:"cursus_users,omitempty"`
	ProjectsUsers   []ProjectUser `json:"projects_users,omitempty"`
}

type Image struct {
	Link     string        `json:"link"`
	Versions ImageVersions `json:"versions"`
}

type ImageVersions struct {
	Large  string `json:"large,omitempty"`
	Medium string `json:"medium,omitempty"`
	Small  string `json:"small,omitempty"`
	Micro  string `json:"micro,omitempty"`
}

type Campus struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type CursusUser struct {
	ID       int        `json:"id"`
	CursusID int        `json:"cursus_id"`
	Level    float64    `json:"level"`
	Grade    string     `json:"grade,omitempty"`
	BeginAt  *time.Time `json:"begin_at,omitempty"`
	EndAt    *time.Time `json:"end_at,omitempty"`
}

type ProjectUser struct {
	ID        int     `json:"id"`
	FinalMark *int    `json:"final_mark"`
	Status    string  `json:"status"`
	Project   Project `json:"project"`
}

type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Cursus returns the user's entry for cursusID, or nil.
func (u *UserProfile) Cursus(cursusID int) *CursusUser {
	for i := range u.CursusUsers {
		if u.CursusUsers[i].CursusID == cursusID {
			return &u.CursusUsers[i]
		}
	}
	return nil
}

// Avatar picks the medium image, then the original, then a placeholder.
func (u *UserProfile) Avatar() string {
	switch {
	case u.Image.Versions.Medium != "":
		return u.Image.Versions.Medium
	case u.Image.Link != "":
		return u.Image.Link
	default:
		return DefaultAvatar
	}
}

// CampusName is the name of the user's first campus.
func (u *UserProfile) CampusName() string {
	if len(u.Campus) == 0 || u.Campus[0].Name == "" {
		return "Unknown"
	}
	return u.Campus[0].Name
}

// DefaultAvatar is shown for users without an image.
const DefaultAvatar = "/default-avatar.png"

// ProfileURLBase prefixes the login for links to the intranet profile.
const ProfileURLBase = "https://profile.intra.42.fr/users/"

// PresenceStatus says whether a user is logged in at a campus workstation.
type PresenceStatus struct {
	Online   bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
	Location string     `json:"location,omitempty"`
}

type CursusSummary struct {
	CursusID int     `json:"cursusId"`
	Level    float64 `json:"level"`
	Grade    string  `json:"grade,omitempty"`
}

type ProjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FinalMark *int   `json:"finalMark"`
	Status    string `json:"status"`
}

// Student is a member of the main cursus as shown on the dashboard.
type Student struct {
	ID               string           `json:"id"`
	Login            string           `json:"login"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	DisplayName      string           `json:"displayName"`
	Email            string           `json:"email"`
	Avatar           string           `json:"avatar"`
	Level            float64          `json:"level"`
	PromoYear        int              `json:"promoYear"`
	Wallet           int              `json:"wallet"`
	EvaluationPoints int              `json:"evaluationPoints"`
	Status           PresenceStatus   `json:"status"`
	ProfileURL       string           `json:"profileUrl"`
	Campus           string           `json:"campus"`
	CursusUsers      []CursusSummary  `json:"cursusUsers"`
	Projects         []ProjectSummary `json:"projects"`
}

// Pooler is a piscine participant as shown on the dashboard.
type Pooler struct {
	ID            string           `json:"id"`
	Login         string           `json:"login"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	DisplayName   string           `json:"displayName"`
	Email         string           `json:"email"`
	Avatar        string           `json:"avatar"`
	Level         float64          `json:"level"`
	PoolYear      int              `json:"poolYear"`
	PoolMonth     string           `json:"poolMonth"`
	Status        PresenceStatus   `json:"status"`
	ProfileURL    string           `json:"profileUrl"`
	Campus        string           `json:"campus"`
	PoolStartDate time.Time        `json:"poolStartDate"`
	PoolEndDate   *time.Time       `json:"poolEndDate,omitempty"`
	Projects      []ProjectSummary `json:"projects"`
}

// Stats aggregates a listing.
type Stats struct {
	TotalCount      int     `json:"totalCount"`
	AverageLevel    float64 `json:"averageLevel"`
	HighestLevel    float64 `json:"highestLevel"`
	OnlineCount     int     `json:"onlineCount"`
	InProgressCount int     `json:"inProgressCount,omitempty"`
}
