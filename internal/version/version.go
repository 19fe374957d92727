// Package version хранит метаданные сборки, заданные через -ldflags:
//
//	-X github.com/vladislavdragonenkov/marketplace/internal/version.version=v1.2.0
package version

import (
	"fmt"
	"strings"
)

const service = "marketplace"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

func GetVersion() string { return version }

func GetCommit() string { return commit }

func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}

// ClientID собирает идентификатор клиента Kafka для компонента, например
// "marketplace-api-v1.2.0". Kafka допускает только [A-Za-z0-9._-],
// остальные символы заменяются на '_'.
func ClientID(component string) string {
	parts := []string{service}
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	parts = append(parts, version)

	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.Join(parts, "-"))
}
