// Package logging は構造化ログ（log/slog）のロガーを生成する。
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogotel "github.com/remychantenay/slog-otel"
)

// Format はログの出力形式。
type Format string

const (
	// FormatJSON はJSON形式。ログ収集基盤向け。
	FormatJSON Format = "json"
	// FormatText はkey=value形式。ローカル開発向け。
	FormatText Format = "text"
)

// ParseFormat は文字列をFormatに変換する。
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	default:
		return "", fmt.Errorf("未対応のログ形式: %q", s)
	}
}

// ParseLevel は文字列をslog.Levelに変換する。
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("未対応のログレベル: %q", s)
	}
	return level, nil
}

// New はロガーを生成する。
// トレースが有効な場合、スパンのtrace_id/span_idがログに付与される。
func New(w io.Writer, format Format, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch format {
	case FormatText:
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(slogotel.OtelHandler{Next: h})
}

// Discard はすべてのログを破棄するロガーを返す。テスト用。
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// JSON はJSONドキュメントをログの値として出力するための型。
// JSON形式のログではそのまま埋め込まれ、text形式では文字列として出力される。
type JSON []byte

// MarshalJSON implements json.Marshaler.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// MarshalText implements encoding.TextMarshaler.
func (j JSON) MarshalText() ([]byte, error) {
	return j, nil
}
