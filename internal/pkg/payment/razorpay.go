package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/artify/artify_go_server/config"
)

var (
	ErrMissingSignature = errors.New("缺少签名头")
	ErrInvalidSignature = errors.New("webhook 签名校验失败")
)

// Client Razorpay 支付网关适配器
type Client struct {
	api           *razorpay.Client
	keyID         string
	webhookSecret string
}

func NewClient(cfg *config.RazorpayConfig) *Client {
	return &Client{
		api:           razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keyID:         cfg.KeyID,
		webhookSecret: cfg.WebhookSecret,
	}
}

// KeyID 前端拉起收银台需要的公钥
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder 创建支付订单，金额按最小货币单位（paise）上送
func (c *Client) CreateOrder(amount float64, currency string, userID int64, planID string) (string, error) {
	data := map[string]interface{}{
		"amount":   int64(amount * 100),
		"currency": currency,
		"receipt":  fmt.Sprintf("rcpt_%d", time.Now().UnixNano()),
		"notes": map[string]interface{}{
			"user_id": fmt.Sprintf("%d", userID),
			"plan_id": planID,
		},
	}

	order, err := c.api.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		return "", fmt.Errorf("unexpected order response: missing id")
	}

	return orderID, nil
}

// VerifyWebhookSignature 校验 webhook 签名
// 对原始请求体做 HMAC-SHA256，与 X-Razorpay-Signature 常量时间比较
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}

	return nil
}

// VerifyPaymentSignature 校验前端回传的支付签名（orderID|paymentID）
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature, keySecret string) bool {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
