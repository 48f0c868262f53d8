package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aula-ai-tutor-go/internal/models"
	"github.com/sirupsen/logrus"
)

const searchURL = "https://www.googleapis.com/youtube/v3/search"

var (
	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("video search not configured")

	// ErrNotFound is returned when the search produced no results.
	ErrNotFound = errors.New("no videos found")
)

// Service searches YouTube for educational videos.
type Service struct {
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger

	baseURL string
}

// NewService creates a video search service. An empty key disables it.
func NewService(apiKey string, logger *logrus.Logger) *Service {
	return &Service{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:  logger,
		baseURL: searchURL,
	}
}

// Search returns the most relevant educational video for a topic.
func (s *Service) Search(ctx context.Context, topic string) (*models.VideoData, error) {
	if s.apiKey == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", fmt.Sprintf("%s educativo explicación tutorial", topic))
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("relevanceLanguage", "es")
	params.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"topic":  topic,
		}).Error("Video search failed")
		return nil, fmt.Errorf("video search failed with status %d", resp.StatusCode)
	}

	var result struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				Thumbnails  struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	item := result.Items[0]
	return &models.VideoData{
		Provider:     "youtube",
		VideoID:      item.ID.VideoID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ThumbnailURL: item.Snippet.Thumbnails.High.URL,
	}, nil
}
