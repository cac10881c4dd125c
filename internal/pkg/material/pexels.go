package material

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// pexelsResponse Pexels 视频搜索接口的响应结构
type pexelsResponse struct {
	Videos []struct {
		ID         int     `json:"id"`
		Duration   float64 `json:"duration"`
		VideoFiles []struct {
			Width  int    `json:"width"`
			Height int    `json:"height"`
			Link   string `json:"link"`
		} `json:"video_files"`
	} `json:"videos"`
}

// searchPexels 在 Pexels 搜索与目标画幅方向一致的素材
func (c *Client) searchPexels(ctx context.Context, term string, width, height int) ([]clipCandidate, error) {
	apiKey, err := c.nextPexelsKey()
	if err != nil {
		return nil, err
	}

	orientation := "landscape"
	switch {
	case height > width:
		orientation = "portrait"
	case height == width:
		orientation = "square"
	}

	query := url.Values{}
	query.Set("query", term)
	query.Set("per_page", "20")
	query.Set("orientation", orientation)

	endpoint := c.pexelsBaseURL + "/videos/search?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", apiKey)

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
		return nil, fmt.Errorf("pexels API status %d: %s", resp.StatusCode, string(body))
	}

	var result pexelsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	var candidates []clipCandidate
	for _, video := range result.Videos {
		// 同一条素材有多种分辨率，选方向一致里最清晰的一档
		best := ""
		bestWidth := 0
		for _, file := range video.VideoFiles {
			if !matchesOrientation(file.Width, file.Height, width, height) {
				continue
			}
			if file.Width > bestWidth {
				bestWidth = file.Width
				best = file.Link
			}
		}
		if best != "" {
			candidates = append(candidates, clipCandidate{URL: best, Duration: video.Duration})
		}
	}

	return candidates, nil
}
