package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testCollector はテスト用のメトリクスコレクタ。
type testCollector struct {
	success int
	failure int
}

func (c *testCollector) RecordTelemetryIngested()                        {}
func (c *testCollector) RecordAudioIngested()                            {}
func (c *testCollector) RecordRetentionEviction(store string, count int) {}
func (c *testCollector) RecordAuthFailure(reason string)                 {}
func (c *testCollector) RecordClassifySuccess()                          { c.success++ }
func (c *testCollector) RecordClassifyFailure()                          { c.failure++ }
func (c *testCollector) RecordClassifyLatency(d time.Duration)           {}

func newTestClient(endpoint string) (*Client, *testCollector) {
	collector := &testCollector{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(endpoint, http.DefaultClient, logger, collector), collector
}

func TestClient_Classify(t *testing.T) {
	audio := []byte("fake-wav-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("リクエストボディのデコードに失敗: %v", err)
		}
		decoded, _ := base64.StdEncoding.DecodeString(req.Audio)
		if string(decoded) != string(audio) {
			t.Error("音声データがbase64で往復していない")
		}
		json.NewEncoder(w).Encode(Classification{Emotion: "happy", Confidence: 0.92})
	}))
	defer server.Close()

	client, collector := newTestClient(server.URL)

	result, err := client.Classify(context.Background(), audio)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if result.Emotion != "happy" {
		t.Errorf("Emotion = %q, want %q", result.Emotion, "happy")
	}
	if result.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", result.Confidence)
	}
	if collector.success != 1 || collector.failure != 0 {
		t.Errorf("metrics success=%d failure=%d, want 1/0", collector.success, collector.failure)
	}
}

func TestClient_Classify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "サーバーエラー",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "不正なJSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "emotionなしのレスポンス",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"confidence": 0.5}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client, collector := newTestClient(server.URL)
			if _, err := client.Classify(context.Background(), []byte("audio")); err == nil {
				t.Error("エラーが返らなかった")
			}
			if collector.failure != 1 {
				t.Errorf("failure = %d, want 1", collector.failure)
			}
		})
	}
}

func TestClient_Classify_EmptyAudio(t *testing.T) {
	client, _ := newTestClient("http://example.com")
	if _, err := client.Classify(context.Background(), nil); err == nil {
		t.Error("空の音声データでエラーが返らなかった")
	}
}
