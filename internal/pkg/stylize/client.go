package stylize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artify/artify_go_server/config"
)

var ErrUpstream = errors.New("风格化服务调用失败")

// Transformer 外部图像风格化能力
type Transformer interface {
	Transform(ctx context.Context, image []byte, prompt string) ([]byte, error)
}

// Client 调用外部风格化 API 的 HTTP 客户端
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(cfg *config.StylizeConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

type transformRequest struct {
	Image  string `json:"image"` // base64
	Prompt string `json:"prompt,omitempty"`
	Style  string `json:"style"`
}

type transformResponse struct {
	Image string `json:"image"` // base64
	Error string `json:"error,omitempty"`
}

// Transform 提交原图，返回风格化结果
func (c *Client) Transform(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	reqBody := transformRequest{
		Image:  base64.StdEncoding.EncodeToString(image),
		Prompt: prompt,
		Style:  "ghibli",
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var result transformResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, result.Error)
	}

	out, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image payload", ErrUpstream)
	}

	return out, nil
}
