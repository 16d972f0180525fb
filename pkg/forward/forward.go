package forward

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout は上流サービスへのリクエストのデフォルトタイムアウト。
const defaultTimeout = 30 * time.Second

// forwardedHeaders は上流へ複製するヘッダの許可リスト。
// これ以外の受信ヘッダ（受信時のAuthorizationを含む）は資格情報の漏洩や
// 混同を防ぐためすべて破棄する。
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Content-Type",
}

// Request は転送対象となる受信リクエストの記述。呼び出しごとに構築され、
// 永続化されることはない。
type Request struct {
	// Method は受信リクエストのHTTPメソッド。
	Method string
	// Header は受信リクエストのヘッダ。許可リストに含まれるものだけが複製される。
	Header http.Header
	// Body は受信リクエストのボディ。ボディを持たないメソッドでは無視される。
	Body io.Reader
}

// FromHTTP は受信HTTPリクエストから転送用のRequestを構築する。
func FromHTTP(r *http.Request) *Request {
	return &Request{
		Method: r.Method,
		Header: r.Header,
		Body:   r.Body,
	}
}

// Result は転送の結果。上流の応答をそのまま写したものか、トランスポート層の
// 失敗から合成したゲートウェイエラー応答のいずれかとなる。
type Result struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Header は上流応答のヘッダ。合成応答の場合はContent-Typeのみを持つ。
	Header http.Header
	// Body は応答ボディ。
	Body []byte
}

// ContentType は応答のContent-Typeを返す。未設定の場合はapplication/jsonを返す。
func (r *Result) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/json"
}

// Config はForwarderの設定。ゼロ値のフィールドにはデフォルトが適用される。
type Config struct {
	// Timeout は上流リクエストのタイムアウト。未設定の場合は30秒。
	Timeout time.Duration
	// Logf は転送失敗等の診断ログ出力先。未設定の場合はlog.Printfを使う。
	Logf func(format string, args ...any)
}

// Forwarder は受信リクエストを上流サービスへ中継するクライアント。
// 設定以外の状態を持たないため、複数ゴルーチンから同時に使用できる。
type Forwarder struct {
	// client は上流との通信に使うHTTPクライアント。
	client *http.Client
	// logf は診断ログの出力先。
	logf func(format string, args ...any)
}

// New は新しいForwarderを生成する。
func New(cfg Config) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Forwarder{
		client: &http.Client{Timeout: cfg.Timeout},
		logf:   cfg.Logf,
	}
}

// Forward は受信リクエストと等価な送信リクエストを組み立てて上流へ送信する。
// bearerTokenが空でない場合、Authorizationヘッダとして付与する。受信リクエストに
// 元々付いていた資格情報が引き継がれることはない。
// 上流の応答は4xx/5xxであってもそのまま返す。トランスポート層の失敗は
// ゲートウェイエラー応答に変換するため、戻り値は常に非nilとなる。
func (f *Forwarder) Forward(ctx context.Context, destinationURL string, inbound *Request, bearerToken string) *Result {
	var body io.Reader
	if methodHasBody(inbound.Method) {
		body = inbound.Body
	}

	req, err := http.NewRequestWithContext(ctx, inbound.Method, destinationURL, body)
	if err != nil {
		f.logf("転送リクエストの作成に失敗: url=%s, error=%v", destinationURL, err)
		return errorResult(http.StatusInternalServerError, "転送リクエストの作成に失敗しました", "")
	}

	if inbound.Header != nil {
		for _, name := range forwardedHeaders {
			if values, ok := inbound.Header[http.CanonicalHeaderKey(name)]; ok {
				req.Header[http.CanonicalHeaderKey(name)] = values
			}
		}
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.classify(destinationURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logf("上流応答の読み取りに失敗: url=%s, error=%v", destinationURL, err)
		return errorResult(http.StatusBadGateway, "上流サービスの応答を読み取れませんでした", destinationURL)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       respBody,
	}
}

// classify はトランスポート層の失敗をゲートウェイエラー応答に変換する。
// タイムアウトは504、接続レベルの失敗は502、それ以外は500とする。
func (f *Forwarder) classify(destinationURL string, err error) *Result {
	f.logf("転送に失敗: url=%s, error=%v", destinationURL, err)

	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorResult(http.StatusGatewayTimeout, "上流サービスへのリクエストがタイムアウトしました", destinationURL)
	case errors.As(err, &urlErr):
		if urlErr.Timeout() {
			return errorResult(http.StatusGatewayTimeout, "上流サービスへのリクエストがタイムアウトしました", destinationURL)
		}
		return errorResult(http.StatusBadGateway, "上流サービスとの通信に失敗しました", destinationURL)
	default:
		return errorResult(http.StatusInternalServerError, "転送中に予期しないエラーが発生しました", "")
	}
}

// methodHasBody はメソッドがリクエストボディの意味を持つかを返す。
func methodHasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodHead
}

// errorBody はゲートウェイエラー応答のJSON形式。
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// errorResult はゲートウェイエラー応答を合成する。
func errorResult(status int, message, details string) *Result {
	body, _ := json.Marshal(errorBody{Error: message, Details: details})
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Result{
		StatusCode: status,
		Header:     header,
		Body:       body,
	}
}
