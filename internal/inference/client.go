// Package inference は外部の感情分類サービスとの連携機能を提供する。
// 録音音声を分類APIに送信し、感情ラベルと確信度を取得する。
package inference

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/mimamori/internal/metrics"
)

// maxResponseSize は分類APIレスポンスの最大読み取りサイズ。
const maxResponseSize = 1 << 20

// Classification は感情分類の結果を表す。
type Classification struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// ClassifierService は感情分類のインターフェース。
type ClassifierService interface {
	// Classify は録音音声を分類し、感情ラベルと確信度を返す。
	Classify(ctx context.Context, audio []byte) (*Classification, error)
}

// Client は感情分類APIのクライアント。
// エンドポイントは設定で与えられ、HTTPクライアントはSSRF防止機能付きのものを使用する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	collector  metrics.MetricsCollector
	endpoint   string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(endpoint string, httpClient *http.Client, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		collector:  collector,
		endpoint:   endpoint,
	}
}

// classifyRequest は分類APIへのリクエストボディ。音声はbase64エンコードして送る。
type classifyRequest struct {
	Audio string `json:"audio"`
}

// Classify は録音音声を分類APIに送信し、感情ラベルと確信度を返す。
// 取得失敗時はエラーを返す（呼び出し元が未分類のまま保存するかを判断する）。
func (c *Client) Classify(ctx context.Context, audio []byte) (*Classification, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("音声データが空です")
	}

	payload, err := json.Marshal(classifyRequest{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの作成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mimamori/1.0 Watch Backend")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.collector.RecordClassifyLatency(time.Since(start))
	if err != nil {
		c.collector.RecordClassifyFailure()
		c.logger.Error("感情分類APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.collector.RecordClassifyFailure()
		c.logger.Error("感情分類APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("感情分類APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.collector.RecordClassifyFailure()
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result Classification
	if err := json.Unmarshal(body, &result); err != nil {
		c.collector.RecordClassifyFailure()
		c.logger.Error("感情分類APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if result.Emotion == "" {
		c.collector.RecordClassifyFailure()
		return nil, fmt.Errorf("感情分類APIのレスポンスにemotionが含まれていません")
	}

	c.collector.RecordClassifySuccess()
	return &result, nil
}

// compile-time interface check
var _ ClassifierService = (*Client)(nil)
