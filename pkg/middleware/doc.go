// Package middleware はリレーサーバーで使用するGinミドルウェアを提供する。
//
// CORSによるオリジン制限、パニックリカバリ、リクエストIDの付与、
// 構造化リクエストログを含む。
package middleware
