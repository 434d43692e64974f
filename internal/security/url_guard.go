// Package security は入力値のサニタイズと外部URLの安全性検証を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// URLGuardService は外部URLのSSRF防止機能のインターフェースを定義する。
// プロフィール画像URLの登録時検証と、感情分類サービスへのHTTPクライアント生成に使用する。
type URLGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// クラウドメタデータIPへのリクエストが自動的にブロックされる。
	// DNS解決後のIPアドレスもDialerレベルで検証されるため、
	// DNS再バインディング攻撃にも対応している。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidatePhotoURL はプロフィール画像URLの安全性を静的に検証する。
	// httpsスキーム必須、内部ネットワークを指すホストは拒否する。
	ValidatePhotoURL(rawURL string) error
}

// privateNetworks は外部URLとして許可しないネットワーク範囲。
// パッケージ初期化時に1回だけパースする。
var privateNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in privateNetworks: %s: %v", cidr, err))
		}
		privateNetworks = append(privateNetworks, *network)
	}
}

// urlGuard はURLGuardServiceの実装。
type urlGuard struct{}

// NewURLGuard はURLGuardServiceの新しいインスタンスを生成する。
func NewURLGuard() *urlGuard {
	return &urlGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// 分類サービスのエンドポイントは設定で与えられるが、設定ミスや
// エンドポイント側のリダイレクトで内部ネットワークに到達しないよう、
// こちらでも防御する。
func (g *urlGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443, 8000, 8080).
		Build()

	return safeurl.Client(config).Client
}

// ValidatePhotoURL はプロフィール画像URLの安全性を静的に検証する。
// 画像URLはモバイルアプリがそのまま取得しに行くため、https必須とする。
func (g *urlGuard) ValidatePhotoURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("scheme must be https, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// isPrivateIP はIPアドレスが内部ネットワーク範囲に含まれるかを検証する。
func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
