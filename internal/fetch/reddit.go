package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

const (
	redditBaseURL = "https://www.reddit.com"
	redditPerPage = 100
	// Each listing strategy pages at most this deep; reddit listings get
	// unreliable past a few hundred entries anyway.
	redditMaxPages = 4
	// Only the most popular posts are worth a comment round-trip.
	redditCommentPosts = 10
	redditTopComments  = 10
)

// Reddit fetches subreddit posts through the public JSON listing API.
type Reddit struct {
	client    HTTPClient
	userAgent string
	baseURL   string
}

// NewReddit creates a Reddit adapter with the given HTTP client.
func NewReddit(client HTTPClient, userAgent string) *Reddit {
	return &Reddit{
		client:    client,
		userAgent: userAgent,
		baseURL:   redditBaseURL,
	}
}

// listing strategy: sort order plus the optional "t" time filter for top.
type redditStrategy struct {
	sort       string
	timeFilter string
}

// strategiesFor picks listing strategies by the width of the requested time
// range: narrow ranges are served well by time-filtered top, a month-wide
// range needs top+hot+new merged to get decent coverage.
func strategiesFor(spec model.FilterSpec) []redditStrategy {
	days := int(spec.TimeRangeEnd.Sub(spec.TimeRangeStart).Hours() / 24)
	switch {
	case days >= 28:
		return []redditStrategy{{"top", "month"}, {"hot", ""}, {"new", ""}}
	case days <= 1:
		return []redditStrategy{{"top", "day"}}
	case days <= 7:
		return []redditStrategy{{"top", "week"}}
	default:
		return []redditStrategy{{"new", ""}}
	}
}

// Fetch collects posts from all strategies concurrently, dedupes them by
// post ID, sorts by score descending, and truncates to limit.
func (r *Reddit) Fetch(ctx context.Context, spec model.FilterSpec, limit int) ([]model.RawItem, error) {
	sub := strings.TrimPrefix(strings.TrimSpace(spec.Target), "r/")

	strategies := strategiesFor(spec)
	batches := make([][]model.RawItem, len(strategies))

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range strategies {
		g.Go(func() error {
			items, err := r.crawl(gctx, sub, st, spec.TimeRangeStart, limit)
			if err != nil {
				return err
			}
			batches[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &model.FetchError{Platform: model.PlatformReddit, Reason: err.Error(), Err: err}
	}

	seen := make(map[string]bool)
	var merged []model.RawItem
	for _, batch := range batches {
		for _, item := range batch {
			if seen[item.PlatformID] {
				continue
			}
			seen[item.PlatformID] = true
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PopularityScore > merged[j].PopularityScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	r.enrichComments(ctx, sub, merged)
	return merged, nil
}

// crawl pages through one listing until limit posts pass the cutoff, the
// page budget runs out, or the listing ends.
func (r *Reddit) crawl(ctx context.Context, sub string, st redditStrategy, cutoff time.Time, limit int) ([]model.RawItem, error) {
	var (
		items []model.RawItem
		after string
	)

	for page := 0; page < redditMaxPages && len(items) < limit; page++ {
		list, err := r.listing(ctx, sub, st, after)
		if err != nil {
			return nil, err
		}
		if len(list.Data.Children) == 0 {
			break
		}

		pastCutoff := false
		for _, child := range list.Data.Children {
			post := child.Data
			created := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if created.Before(cutoff) {
				pastCutoff = true
				continue
			}
			items = append(items, redditItem(post, created))
		}

		// A "new"-sorted listing is chronological, so once posts fall
		// behind the cutoff there is nothing further to find.
		if pastCutoff && st.sort == "new" {
			break
		}
		after = list.Data.After
		if after == "" {
			break
		}
	}
	return items, nil
}

func (r *Reddit) listing(ctx context.Context, sub string, st redditStrategy, after string) (*redditListing, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(redditPerPage))
	q.Set("raw_json", "1")
	if st.timeFilter != "" {
		q.Set("t", st.timeFilter)
	}
	if after != "" {
		q.Set("after", after)
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", r.baseURL, url.PathEscape(sub), st.sort, q.Encode())

	var list redditListing
	if err := r.getJSON(ctx, endpoint, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// enrichComments attaches top comments to the highest-ranked posts. Comment
// retrieval is best-effort: a failing thread leaves the item without
// comments rather than failing the scrape.
func (r *Reddit) enrichComments(ctx context.Context, sub string, items []model.RawItem) {
	n := len(items)
	if n > redditCommentPosts {
		n = redditCommentPosts
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			comments, err := r.topComments(gctx, sub, items[i].PlatformID)
			if err == nil {
				items[i].TopComments = comments
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reddit) topComments(ctx context.Context, sub, postID string) ([]model.Comment, error) {
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json?sort=top&limit=%d&depth=1&raw_json=1",
		r.baseURL, url.PathEscape(sub), url.PathEscape(postID), redditTopComments)

	// The thread endpoint returns two listings: the post and its comments.
	var thread []redditListing
	if err := r.getJSON(ctx, endpoint, &thread); err != nil {
		return nil, err
	}
	if len(thread) < 2 {
		return nil, fmt.Errorf("unexpected thread shape for post %s", postID)
	}

	var comments []model.Comment
	for _, child := range thread[1].Data.Children {
		if child.Kind != "t1" || child.Data.Body == "" {
			continue
		}
		comments = append(comments, model.Comment{
			Author: child.Data.Author,
			Score:  child.Data.Score,
			Body:   child.Data.Body,
		})
		if len(comments) == redditTopComments {
			break
		}
	}
	return comments, nil
}

func (r *Reddit) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("parse listing: %w", err)
	}
	return nil
}

func redditItem(post redditPost, created time.Time) model.RawItem {
	author := post.Author
	if author == "" {
		author = "[deleted]"
	}
	return model.RawItem{
		PlatformID:      post.ID,
		Platform:        model.PlatformReddit,
		Title:           post.Title,
		Author:          author,
		CreatedAt:       created,
		PopularityScore: post.Score,
		BodyText:        post.Selftext,
		MediaRefs:       extractImageURLs(post.URL),
		Permalink:       "https://www.reddit.com" + post.Permalink,
		NumComments:     post.NumComments,
	}
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// extractImageURLs recognizes direct image links and imgur galleries.
func extractImageURLs(postURL string) []string {
	if postURL == "" {
		return nil
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(postURL, ext) {
			return []string{postURL}
		}
	}
	if strings.Contains(postURL, "imgur.com/a/") || strings.Contains(postURL, "imgur.com/gallery/") {
		return []string{postURL}
	}
	return nil
}

type redditListing struct {
	Data struct {
		After    string          `json:"after"`
		Children []redditElement `json:"children"`
	} `json:"data"`
}

type redditElement struct {
	Kind string     `json:"kind"`
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Score       int64   `json:"score"`
	CreatedUTC  float64 `json:"created_utc"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	NumComments int64   `json:"num_comments"`
	Body        string  `json:"body"`
}
