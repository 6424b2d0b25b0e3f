package youtube

import (
	"context"
	"fmt"
	"strings"

	yt "github.com/kkdai/youtube/v2"
)

const DefaultLanguage = "en"

// TranscriptClient fetches caption tracks of YouTube videos.
type TranscriptClient struct {
	client   yt.Client
	language string
}

func NewTranscriptClient(language string) *TranscriptClient {
	if language == "" {
		language = DefaultLanguage
	}
	return &TranscriptClient{language: language}
}

// FetchTranscript returns the caption segments of a video in order.
func (c *TranscriptClient) FetchTranscript(ctx context.Context, videoURL string) ([]string, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}

	transcript, err := c.client.GetTranscriptCtx(ctx, video, c.language)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	segments := make([]string, 0, len(transcript))
	for _, seg := range transcript {
		if text := strings.TrimSpace(seg.Text); text != "" {
			segments = append(segments, text)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("video %s has an empty transcript", video.ID)
	}
	return segments, nil
}
