package infra

// Version はビルド時に -ldflags "-X safelink-service/internal/infra.Version=..." で上書きする。
var Version = "1.0.0"
