package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
)

const (
	youtubeBaseURL     = "https://www.googleapis.com/youtube/v3"
	youtubeMaxResults  = 50
	youtubeTopComments = 5
)

// YouTube fetches videos through the Data API v3: a search call ordered by
// view count, then a stats lookup, then best-effort comment enrichment.
// Transcripts are not exposed by the Data API; RawItem.Transcript stays
// empty for fetched items.
type YouTube struct {
	client  HTTPClient
	apiKey  string
	baseURL string
}

// NewYouTube creates a YouTube adapter with the given HTTP client and key.
func NewYouTube(client HTTPClient, apiKey string) *YouTube {
	return &YouTube{
		client:  client,
		apiKey:  apiKey,
		baseURL: youtubeBaseURL,
	}
}

// Fetch searches for videos matching the target keywords within the time
// range, filters by view count, and enriches with comments.
func (y *YouTube) Fetch(ctx context.Context, spec model.FilterSpec, limit int) ([]model.RawItem, error) {
	if y.apiKey == "" {
		return nil, &model.FetchError{Platform: model.PlatformYouTube, Reason: "api key not configured"}
	}

	ids, err := y.search(ctx, spec, limit)
	if err != nil {
		return nil, &model.FetchError{Platform: model.PlatformYouTube, Reason: err.Error(), Err: err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := y.videos(ctx, ids, spec.MinPopularity)
	if err != nil {
		return nil, &model.FetchError{Platform: model.PlatformYouTube, Reason: err.Error(), Err: err}
	}
	if len(items) > limit {
		items = items[:limit]
	}

	for i := range items {
		comments, cErr := y.topComments(ctx, items[i].PlatformID)
		if cErr == nil {
			items[i].TopComments = comments
		}
	}
	return items, nil
}

func (y *YouTube) search(ctx context.Context, spec model.FilterSpec, limit int) ([]string, error) {
	maxResults := limit
	if maxResults > youtubeMaxResults {
		maxResults = youtubeMaxResults
	}

	q := url.Values{}
	q.Set("part", "id")
	q.Set("q", spec.Target)
	q.Set("type", "video")
	q.Set("order", "viewCount")
	q.Set("publishedAfter", spec.TimeRangeStart.UTC().Format(time.RFC3339))
	q.Set("publishedBefore", spec.TimeRangeEnd.UTC().Format(time.RFC3339))
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("key", y.apiKey)

	var resp searchResponse
	if err := y.getJSON(ctx, y.baseURL+"/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	var ids []string
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	return ids, nil
}

func (y *YouTube) videos(ctx context.Context, ids []string, minViews int64) ([]model.RawItem, error) {
	q := url.Values{}
	q.Set("part", "statistics,snippet")
	q.Set("id", strings.Join(ids, ","))
	q.Set("key", y.apiKey)

	var resp videosResponse
	if err := y.getJSON(ctx, y.baseURL+"/videos?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	var items []model.RawItem
	for _, v := range resp.Items {
		views := parseCount(v.Statistics.ViewCount)
		if views < minViews {
			continue
		}
		published, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
		if err != nil {
			continue
		}

		item := model.RawItem{
			PlatformID:      v.ID,
			Platform:        model.PlatformYouTube,
			Title:           v.Snippet.Title,
			Author:          v.Snippet.ChannelTitle,
			CreatedAt:       published.UTC(),
			PopularityScore: views,
			BodyText:        v.Snippet.Description,
			Permalink:       "https://www.youtube.com/watch?v=" + v.ID,
			NumComments:     parseCount(v.Statistics.CommentCount),
		}
		if thumb := v.Snippet.Thumbnails.High.URL; thumb != "" {
			item.MediaRefs = []string{thumb}
		}
		items = append(items, item)
	}
	return items, nil
}

// topComments fetches the most relevant comments for a video. Comments may
// be disabled; the caller treats any error as "no comments".
func (y *YouTube) topComments(ctx context.Context, videoID string) ([]model.Comment, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("videoId", videoID)
	q.Set("maxResults", strconv.Itoa(youtubeTopComments))
	q.Set("order", "relevance")
	q.Set("textFormat", "plainText")
	q.Set("key", y.apiKey)

	var resp commentThreadsResponse
	if err := y.getJSON(ctx, y.baseURL+"/commentThreads?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	var comments []model.Comment
	for _, item := range resp.Items {
		snippet := item.Snippet.TopLevelComment.Snippet
		comments = append(comments, model.Comment{
			Author: snippet.AuthorDisplayName,
			Score:  snippet.LikeCount,
			Body:   snippet.TextDisplay,
		})
	}
	return comments, nil
}

func (y *YouTube) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := y.client.Do(req)
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
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// parseCount handles the API's habit of returning counters as strings.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Description  string `json:"description"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type commentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					AuthorDisplayName string `json:"authorDisplayName"`
					TextDisplay       string `json:"textDisplay"`
					LikeCount         int64  `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}
