package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はリクエストボディ。
	Body []byte
	// Headers はリクエストヘッダー。
	Headers http.Header
}

// testPayload はテスト用のリクエストペイロード。
type testPayload struct {
	// Phone はテスト用の電話番号フィールド。
	Phone string `json:"phone"`
	// Amount はテスト用の金額フィールド。
	Amount int `json:"amount"`
}

// mustCredential はテスト用のCredentialを生成する。
func mustCredential(t *testing.T, scheme Scheme, key string) Credential {
	t.Helper()

	cred, err := NewCredential(scheme, key)
	if err != nil {
		t.Fatalf("NewCredential()でエラーが発生: %v", err)
	}
	return cred
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("クライアントが正常に生成されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", 30*time.Second)
		if client == nil {
			t.Fatal("New()がnilを返した")
		}
		if client.BaseURL() != "http://localhost:8080" {
			t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), "http://localhost:8080")
		}
		if client.resty == nil {
			t.Fatal("restyクライアントがnil")
		}
	})

	t.Run("タイムアウトとリトライ回数が設定されること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:8080", 5*time.Second)
		if got := client.resty.GetClient().Timeout; got != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", got)
		}
		if client.resty.RetryCount != 0 {
			t.Errorf("RetryCount = %d, want 0", client.resty.RetryCount)
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("正常にPOSTリクエストを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		var received testRequest
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received.Method = r.Method
			received.Path = r.URL.Path
			received.Body, _ = io.ReadAll(r.Body)
			received.Headers = r.Header

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer ts.Close()

		client := New(ts.URL+"/v1", time.Second)
		body := testPayload{Phone: "254700000000", Amount: 100}

		resp, err := client.PostJSON(context.Background(), "/initiatestk", mustCredential(t, SchemeRaw, "secret"), body)
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		// リクエストの検証
		if received.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", received.Method, http.MethodPost)
		}
		if received.Path != "/v1/initiatestk" {
			t.Errorf("Path = %q, want %q", received.Path, "/v1/initiatestk")
		}
		if got := received.Headers.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if got := received.Headers.Get("Authorization"); got != "secret" {
			t.Errorf("Authorization = %q, want %q", got, "secret")
		}

		var sent testPayload
		if err := json.Unmarshal(received.Body, &sent); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sent != body {
			t.Errorf("送信ボディ = %+v, want %+v", sent, body)
		}

		// レスポンスの検証
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if string(resp.Body) != `{"ok":true}` {
			t.Errorf("Body = %s, want %s", resp.Body, `{"ok":true}`)
		}
	})

	t.Run("Bearer形式の認証ヘッダーが送信されること", func(t *testing.T) {
		t.Parallel()

		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		if _, err := client.PostJSON(context.Background(), "/initiatebalance", mustCredential(t, SchemeBearer, "secret"), testPayload{}); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if gotAuth != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
		}
	})

	t.Run("サーバーが400エラーを返してもエラーにならずステータスとボディが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		resp, err := client.PostJSON(context.Background(), "/initiatestk", nil, testPayload{})
		if err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
		if string(resp.Body) != `{"error":"bad request"}` {
			t.Errorf("Body = %s, want %s", resp.Body, `{"error":"bad request"}`)
		}
	})

	t.Run("不正なJSONレスポンスでErrInvalidJSONが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`<html>bad gateway</html>`))
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		_, err := client.PostJSON(context.Background(), "/initiatestk", nil, testPayload{})
		if !errors.Is(err, ErrInvalidJSON) {
			t.Fatalf("err = %v, want ErrInvalidJSON", err)
		}
	})

	t.Run("空のレスポンスボディでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		_, err := client.PostJSON(context.Background(), "/initiatestk", nil, testPayload{})
		if !errors.Is(err, ErrInvalidJSON) {
			t.Fatalf("err = %v, want ErrInvalidJSON", err)
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		// 存在しないサーバーに接続を試みる
		client := New("http://127.0.0.1:1", time.Second)
		_, err := client.PostJSON(context.Background(), "/initiatestk", nil, testPayload{})
		if err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("タイムアウトを超えた場合にエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL, 20*time.Millisecond)
		_, err := client.PostJSON(context.Background(), "/initiatestk", nil, testPayload{})
		if err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("キャンセルされたコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // 即座にキャンセル

		_, err := client.PostJSON(ctx, "/initiatestk", nil, testPayload{})
		if err == nil {
			t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("RawMessageのボディがそのまま送信されること", func(t *testing.T) {
		t.Parallel()

		var receivedBody []byte
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			receivedBody, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		client := New(ts.URL, time.Second)
		body := json.RawMessage(`{"phone":"254700000000","extra":{"nested":1}}`)
		if _, err := client.PostJSON(context.Background(), "/initiatestk", nil, body); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if string(receivedBody) != string(body) {
			t.Errorf("送信ボディ = %s, want %s", receivedBody, body)
		}
	})
}

// TestPostJSON_SerializationError はシリアライズ不可能なボディでエラーが返ることを検証する。
func TestPostJSON_SerializationError(t *testing.T) {
	t.Parallel()

	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	client := New(ts.URL, time.Second)
	// json.Marshalでエラーになるチャネル型を渡す
	_, err := client.PostJSON(context.Background(), "/initiatestk", nil, make(chan int))
	if err == nil {
		t.Fatal("PostJSON()がエラーを返すべきだが、nilが返った")
	}
	if called {
		t.Error("シリアライズ失敗時にリクエストが送信されるべきではない")
	}
}
