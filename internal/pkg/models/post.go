package models

import (
	"time"
)

// Post is a single social-media item submitted for analysis, optionally
// carrying the author's account metadata.
type Post struct {
	Content   string           `json:"content"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp,omitempty"`
	Metadata  *AccountMetadata `json:"metadata,omitempty"`
}

// AccountMetadata describes the posting account. All fields are optional;
// malformed values (negative counts, rates outside [0,1]) are clamped to
// sane defaults during analysis rather than rejected.
type AccountMetadata struct {
	Username        string  `json:"username,omitempty"`
	DisplayName     string  `json:"display_name,omitempty"`
	Bio             string  `json:"bio,omitempty"`
	ProfileImage    string  `json:"profile_image,omitempty"`
	Website         string  `json:"website,omitempty"`
	Location        string  `json:"location,omitempty"`
	AccountAgeDays  int     `json:"account_age_days,omitempty"`
	PostsPerDay     float64 `json:"posts_per_day,omitempty"`
	Followers       int     `json:"followers,omitempty"`
	Following       int     `json:"following,omitempty"`
	EngagementRate  float64 `json:"avg_engagement_rate,omitempty"`
	ResponseSeconds float64 `json:"avg_response_time_seconds,omitempty"`
	PostingHours    []int   `json:"posting_hours,omitempty"`
	ActivityPattern []int   `json:"activity_pattern,omitempty"` // 24 hourly buckets
	Verified        bool    `json:"verified,omitempty"`
	UsingVPN        bool    `json:"using_vpn,omitempty"`
	UsingProxy      bool    `json:"using_proxy,omitempty"`
	Anonymous       bool    `json:"anonymous_posting,omitempty"`
}

// NetworkMetadata carries graph-level signals about the account's
// connections, when a caller has them.
type NetworkMetadata struct {
	SimilarConnections    int     `json:"similar_connections,omitempty"`
	TotalConnections      int     `json:"total_connections,omitempty"`
	ClusteringCoefficient float64 `json:"clustering_coefficient,omitempty"`
	CoordinatedFollowing  bool    `json:"coordinated_following,omitempty"`
	SimultaneousCreation  bool    `json:"simultaneous_account_creation,omitempty"`
}

// ContextData carries situational flags supplied by the calling layer.
type ContextData struct {
	MajorEventProximity bool `json:"major_event_proximity,omitempty"`
	HolidayPeriod       bool `json:"holiday_period,omitempty"`
	FrequencySpike      bool `json:"posting_frequency_spike,omitempty"`
	CoordinatedTiming   bool `json:"coordinated_timing_detected,omitempty"`
	ViralContent        bool `json:"viral_content,omitempty"`
	TrendingHashtags    bool `json:"trending_hashtags,omitempty"`
}

// AnalysisRequest is the unit of work accepted by the ingest service and
// consumed by the worker pool.
type AnalysisRequest struct {
	CaseID      string           `json:"case_id,omitempty"`
	Content     string           `json:"content"`
	Metadata    *AccountMetadata `json:"metadata,omitempty"`
	Network     *NetworkMetadata `json:"network,omitempty"`
	Context     *ContextData     `json:"context,omitempty"`
	RecentPosts []string         `json:"recent_posts,omitempty"`
	Related     []Post           `json:"related_posts,omitempty"`
	EnrichWith  string           `json:"enrich_with,omitempty"` // LLM prompt profile, empty = off
	ReceivedAt  time.Time        `json:"received_at,omitempty"`
}
