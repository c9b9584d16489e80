// Package migrations はバイナリに埋め込むSQLマイグレーションを提供する。
package migrations

import "embed"

// FS はマイグレーションファイル（{version}_{name}.sql）を保持する。
//
//go:embed *.sql
var FS embed.FS
