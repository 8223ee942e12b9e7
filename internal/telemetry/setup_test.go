package telemetry

import (
	"context"
	"testing"
)

// TestSetup_Disabled は無効時に何も設定されないことを検証する。
func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown, err := Setup(context.Background(), false, "payrelay")
	if err != nil {
		t.Fatalf("Setup()でエラーが発生: %v", err)
	}
	if shutdown == nil {
		t.Fatal("Setup()がnilのShutdownFuncを返した")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown()でエラーが発生: %v", err)
	}
}

// TestSetup_Enabled は有効時にプロバイダが初期化され停止できることを検証する。
// エクスポーターはnoneを指定し、外部への送信は行わない。
func TestSetup_Enabled(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "none")

	shutdown, err := Setup(context.Background(), true, "payrelay-test")
	if err != nil {
		t.Fatalf("Setup()でエラーが発生: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown()でエラーが発生: %v", err)
	}
}
