package security

import (
	"testing"
)

func TestInputSanitizer_SanitizeText(t *testing.T) {
	s := NewInputSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "プレーンテキストはそのまま", input: "たろうのパパ", want: "たろうのパパ"},
		{name: "タグを除去", input: "<b>たろう</b>のパパ", want: "たろうのパパ"},
		{name: "scriptタグは中身ごと除去", input: "名前<script>alert(1)</script>", want: "名前"},
		{name: "前後の空白を除去", input: "  公園エリア  ", want: "公園エリア"},
		{name: "空文字列", input: "", want: ""},
		{name: "タグのみ", input: "<img src=x onerror=alert(1)>", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestInputSanitizer_Idempotent(t *testing.T) {
	s := NewInputSanitizer()
	input := "<b>たろう</b>のパパ"

	once := s.SanitizeText(input)
	twice := s.SanitizeText(once)
	if once != twice {
		t.Errorf("冪等でない: 1回目=%q 2回目=%q", once, twice)
	}
}

func TestURLGuard_ValidatePhotoURL(t *testing.T) {
	g := NewURLGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "公開httpsは許可", url: "https://cdn.example.com/photo.jpg", wantErr: false},
		{name: "httpは拒否", url: "http://cdn.example.com/photo.jpg", wantErr: true},
		{name: "javascriptスキームは拒否", url: "javascript:alert(1)", wantErr: true},
		{name: "dataスキームは拒否", url: "data:image/png;base64,xxxx", wantErr: true},
		{name: "空URLは拒否", url: "", wantErr: true},
		{name: "localhostは拒否", url: "https://localhost/photo.jpg", wantErr: true},
		{name: "ループバックIPは拒否", url: "https://127.0.0.1/photo.jpg", wantErr: true},
		{name: "プライベートIPは拒否", url: "https://192.168.1.10/photo.jpg", wantErr: true},
		{name: "メタデータIPは拒否", url: "https://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "IPv6ループバックは拒否", url: "https://[::1]/photo.jpg", wantErr: true},
		{name: "公開IPは許可", url: "https://93.184.216.34/photo.jpg", wantErr: false},
		{name: "ホストなしは拒否", url: "https:///photo.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.ValidatePhotoURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidatePhotoURL(%q) がエラーを返さなかった", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidatePhotoURL(%q) = %v", tt.url, err)
			}
		})
	}
}

func TestURLGuard_NewSafeClient(t *testing.T) {
	g := NewURLGuard()

	client := g.NewSafeClient(0)
	if client == nil {
		t.Fatal("NewSafeClientがnilを返した")
	}
	if client.Transport == nil {
		t.Error("SSRF防止用のTransportが設定されていない")
	}
}
