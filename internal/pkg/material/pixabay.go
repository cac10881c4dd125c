package material

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// pixabayRendition 单个分辨率档位
type pixabayRendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// pixabayResponse Pixabay 视频搜索接口的响应结构
type pixabayResponse struct {
	Hits []struct {
		Duration float64 `json:"duration"`
		Videos   struct {
			Large  pixabayRendition `json:"large"`
			Medium pixabayRendition `json:"medium"`
			Small  pixabayRendition `json:"small"`
		} `json:"videos"`
	} `json:"hits"`
}

// searchPixabay 在 Pixabay 搜索与目标画幅方向一致的素材
func (c *Client) searchPixabay(ctx context.Context, term string, width, height int) ([]clipCandidate, error) {
	apiKey, err := c.nextPixabayKey()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("key", apiKey)
	query.Set("q", term)
	query.Set("video_type", "film")
	query.Set("per_page", "50")

	endpoint := c.pixabayBaseURL + "/api/videos/?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay API status %d: %s", resp.StatusCode, string(body))
	}

	var result pixabayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var candidates []clipCandidate
	for _, hit := range result.Hits {
		// 优先大档位，方向不匹配时依次降档
		for _, r := range []pixabayRendition{hit.Videos.Large, hit.Videos.Medium, hit.Videos.Small} {
			if r.URL != "" && matchesOrientation(r.Width, r.Height, width, height) {
				candidates = append(candidates, clipCandidate{URL: r.URL, Duration: hit.Duration})
				break
			}
		}
	}

	return candidates, nil
}
