package schema

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           string            `json:"id"                  bson:"_id"`
	Email        string            `json:"email,omitempty"     bson:"email,omitempty"`
	Name         string            `json:"name,omitempty"      bson:"name,omitempty"`
	Username     string            `json:"username,omitempty"  bson:"username,omitempty"`
	Avatar       string            `json:"avatar,omitempty"    bson:"avatar,omitempty"`
	Role         string            `json:"role"                bson:"role"`
	PasswordHash string            `json:"-"                   bson:"password_hash,omitempty"`
	Providers    map[string]string `json:"providers,omitempty" bson:"providers,omitempty"`
	CreatedAt    time.Time         `json:"created_at"          bson:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"          bson:"updated_at"`
}

// Public is the profile shown to other users.
type Public struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Username: u.Username, Avatar: u.Avatar}
}

// Point is a GeoJSON point. Coordinates are [lng, lat].
type Point struct {
	Type        string     `json:"type"        bson:"type"`
	Coordinates [2]float64 `json:"coordinates" bson:"coordinates"`
}

// NewPoint builds a point from latitude and longitude.
func NewPoint(lat, lng float64) *Point {
	return &Point{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p *Point) Lat() float64 { return p.Coordinates[1] }
func (p *Point) Lng() float64 { return p.Coordinates[0] }

// Pin is a saved place.
type Pin struct {
	ID          string    `json:"id"                    bson:"_id"`
	UserID      string    `json:"user_id"               bson:"user_id"`
	Title       string    `json:"title"                 bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	URL         string    `json:"url,omitempty"         bson:"url,omitempty"`
	Tags        []string  `json:"tags,omitempty"        bson:"tags,omitempty"`
	Location    *Point    `json:"location,omitempty"    bson:"location,omitempty"`
	VenueID     string    `json:"venue_id,omitempty"    bson:"venue_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"            bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"            bson:"updated_at"`
}

// Invite is a pending invitation to sign up.
type Invite struct {
	ID         string     `json:"id"                    bson:"_id"`
	Code       string     `json:"code"                  bson:"code"`
	Email      string     `json:"email"                 bson:"email"`
	Name       string     `json:"name,omitempty"        bson:"name,omitempty"`
	InviterID  string     `json:"inviter_id"            bson:"inviter_id"`
	Message    string     `json:"message,omitempty"     bson:"message,omitempty"`
	CreatedAt  time.Time  `json:"created_at"            bson:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
}

// Event is a client-reported analytics event. It is forwarded, never stored.
type Event struct {
	Name       string         `json:"name"                 validate:"required,max=100"`
	Source     string         `json:"source,omitempty"     validate:"max=100"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NormalizeEmail applies NFKC and case folding so that visually equal
// addresses collide on the unique index.
func NormalizeEmail(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// NormalizeUsername is NormalizeEmail with a leading @ removed.
func NormalizeUsername(s string) string {
	return strings.TrimPrefix(NormalizeEmail(s), "@")
}

// NormalizeTags folds, trims and deduplicates tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeEmail(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
