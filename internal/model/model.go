// Package model defines the domain types used across the application.
package model

import "time"

// Platform identifies the social network an item was scraped from.
type Platform string

// Supported platforms.
const (
	PlatformReddit  Platform = "reddit"
	PlatformYouTube Platform = "youtube"
)

// Valid reports whether the platform is one we can scrape.
func (p Platform) Valid() bool {
	return p == PlatformReddit || p == PlatformYouTube
}

// Comment is a top user comment attached to a scraped item.
type Comment struct {
	Author string `json:"author"`
	Score  int64  `json:"score"`
	Body   string `json:"body"`
}

// RawItem is one scraped post or video. Immutable once fetched.
type RawItem struct {
	PlatformID      string    `json:"platform_id"`
	Platform        Platform  `json:"platform"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	CreatedAt       time.Time `json:"created_at"`
	PopularityScore int64     `json:"popularity_score"`
	BodyText        string    `json:"body_text,omitempty"`
	MediaRefs       []string  `json:"media_refs,omitempty"`
	Transcript      string    `json:"transcript,omitempty"`
	Permalink       string    `json:"permalink,omitempty"`
	NumComments     int64     `json:"num_comments"`
	TopComments     []Comment `json:"top_comments,omitempty"`
}

// FilterSpec fully determines a fetch call. It is part of the session key
// and is carried as provenance on any material derived from it.
type FilterSpec struct {
	Platform       Platform  `json:"platform"`
	Target         string    `json:"target"`
	TimeRangeStart time.Time `json:"time_range_start"`
	TimeRangeEnd   time.Time `json:"time_range_end"`
	MinPopularity  int64     `json:"min_popularity"`
}

// Summary is an AI-generated digest of one scrape batch.
type Summary struct {
	SourceItemIDs []string  `json:"source_item_ids"`
	Text          string    `json:"text"`
	GeneratedAt   time.Time `json:"generated_at"`
	ModelUsed     string    `json:"model_used"`
	VisualIntent  string    `json:"visual_intent,omitempty"`
}

// SessionState is the volatile, per-session working state. It is owned
// exclusively by the session store and copied by value on promotion.
type SessionState struct {
	SessionID  string     `json:"session_id"`
	FilterSpec FilterSpec `json:"filter_spec"`
	RawItems   []RawItem  `json:"raw_items"`
	Summary    *Summary   `json:"summary,omitempty"`
	Selection  []string   `json:"selection,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Warning    string     `json:"warning,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so a stored state never aliases caller slices.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.RawItems = cloneItems(s.RawItems)
	cp.Selection = append([]string(nil), s.Selection...)
	cp.Summary = cloneSummary(s.Summary)
	return &cp
}

// MaterialKind distinguishes scrape snapshots from saved comparison reports.
type MaterialKind string

// Supported material kinds.
const (
	KindScrape MaterialKind = "scrape"
	KindReport MaterialKind = "report"
)

// Material is a durable, named snapshot. Immutable except for deletion;
// regeneration means delete and re-save. For Kind=report,
// SourceMaterialIDs and ModelUsed record which materials were compared
// and which model wrote the report.
type Material struct {
	MaterialID        string       `json:"material_id"`
	ProjectName       string       `json:"project_name"`
	Tags              []string     `json:"tags,omitempty"`
	Kind              MaterialKind `json:"kind"`
	FilterSpec        FilterSpec   `json:"filter_spec"`
	RawItems          []RawItem    `json:"raw_items,omitempty"`
	Summary           *Summary     `json:"summary,omitempty"`
	ReportText        string       `json:"report_text,omitempty"`
	SourceMaterialIDs []string     `json:"source_material_ids,omitempty"`
	ModelUsed         string       `json:"model_used,omitempty"`
	SavedAt           time.Time    `json:"saved_at"`
}

// MaterialSummary is the cheap listing row: metadata only, no item bodies.
type MaterialSummary struct {
	MaterialID  string       `json:"material_id"`
	ProjectName string       `json:"project_name"`
	Tags        []string     `json:"tags,omitempty"`
	Kind        MaterialKind `json:"kind"`
	Platform    Platform     `json:"platform"`
	Target      string       `json:"target"`
	ItemCount   int          `json:"item_count"`
	HasSummary  bool         `json:"has_summary"`
	SavedAt     time.Time    `json:"saved_at"`
}

// ComparisonReport is the synthesized cross-material artifact. MaterialIDs
// preserve the caller's requested order.
type ComparisonReport struct {
	MaterialIDs []string  `json:"material_ids"`
	ReportText  string    `json:"report_text"`
	GeneratedAt time.Time `json:"generated_at"`
	ModelUsed   string    `json:"model_used"`
}

// NewMaterialFromSession promotes a session state into a material snapshot.
// Every slice is value-copied so later scrapes in the same session cannot
// drift the saved material.
func NewMaterialFromSession(state *SessionState, projectName string, tags []string) Material {
	return Material{
		ProjectName: projectName,
		Tags:        append([]string(nil), tags...),
		Kind:        KindScrape,
		FilterSpec:  state.FilterSpec,
		RawItems:    cloneItems(state.RawItems),
		Summary:     cloneSummary(state.Summary),
	}
}

func cloneSummary(s *Summary) *Summary {
	if s == nil {
		return nil
	}
	cp := *s
	cp.SourceItemIDs = append([]string(nil), s.SourceItemIDs...)
	return &cp
}

func cloneItems(items []RawItem) []RawItem {
	if items == nil {
		return nil
	}
	cp := make([]RawItem, len(items))
	copy(cp, items)
	for i := range cp {
		cp[i].MediaRefs = append([]string(nil), items[i].MediaRefs...)
		cp[i].TopComments = append([]Comment(nil), items[i].TopComments...)
	}
	return cp
}
