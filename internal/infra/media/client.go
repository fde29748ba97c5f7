package media

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/service"
)

const requestTimeout = 2 * time.Minute

// resolveResponse is the download API's resolve payload.
type resolveResponse struct {
	Status bool   `json:"status"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Mime   string `json:"mimetype"`
}

// Client talks to the external media resolver API. It implements
// service.MediaAPI.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a media client against the given API base URL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	return &Client{
		http: http,
		log:  log.With().Str("component", "media").Logger(),
	}
}

// Song resolves a search query to an audio file.
func (c *Client) Song(ctx context.Context, query string) (*service.MediaFile, error) {
	return c.resolve(ctx, "/api/song", "query", query, "audio/mpeg")
}

// Video resolves a link to a video file.
func (c *Client) Video(ctx context.Context, url string) (*service.MediaFile, error) {
	return c.resolve(ctx, "/api/video", "url", url, "video/mp4")
}

// MenuIcon fetches the bot's menu image.
func (c *Client) MenuIcon(ctx context.Context) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/assets/icon.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch icon: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("icon fetch returned %s", resp.Status())
	}
	return resp.Body(), nil
}

// resolve asks the API for a download location, then pulls the bytes.
func (c *Client) resolve(ctx context.Context, path, param, value, fallbackMime string) (*service.MediaFile, error) {
	var meta resolveResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		SetResult(&meta).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("media resolve returned %s", resp.Status())
	}
	if !meta.Status || meta.URL == "" {
		return nil, fmt.Errorf("no result for %q", value)
	}

	c.log.Debug().Str("title", meta.Title).Str("url", meta.URL).Msg("media resolved")

	file, err := c.http.R().SetContext(ctx).Get(meta.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	if file.IsError() {
		return nil, fmt.Errorf("media download returned %s", file.Status())
	}

	mime := meta.Mime
	if mime == "" {
		mime = fallbackMime
	}
	return &service.MediaFile{
		Title:    meta.Title,
		Data:     file.Body(),
		Mimetype: mime,
	}, nil
}
