package converter

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/enrollment-ingress/pkg/model"
)

// qualifiedNamePattern accepts [database.]schema.table made of unquoted identifiers
var qualifiedNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*){1,2}$`)

// ValidQualifiedName reports whether name is a safe unquoted warehouse table name
func ValidQualifiedName(name string) bool {
	return qualifiedNamePattern.MatchString(name)
}

// ColumnMapping maps warehouse result columns onto dataset headers
type ColumnMapping struct {
	// Headers holds the dataset header for each source column, "" when unmapped
	Headers []string
	// Missing lists required headers no source column supplied
	Missing []string
}

// MapColumns matches warehouse column names to the dataset's headers. Warehouse
// identifiers are usually upper-cased, so matching ignores case and accepts
// either the CSV header or the table column name.
func (c *TypeConverter) MapColumns(columns []string, md *model.TableMetadata) ColumnMapping {
	mapping := ColumnMapping{Headers: make([]string, len(columns))}
	seen := make(map[string]bool, len(columns))

	for i, name := range columns {
		col := md.GetColumnByName(strings.TrimSpace(name))
		if col == nil {
			c.logger.Debug("Ignoring unmapped warehouse column",
				zap.String("column", name),
				zap.String("table", md.Table))
			continue
		}
		if seen[col.Header] {
			continue
		}
		seen[col.Header] = true
		mapping.Headers[i] = col.Header
	}

	for _, h := range md.RequiredHeaders() {
		if !seen[h] {
			mapping.Missing = append(mapping.Missing, h)
		}
	}
	return mapping
}

// KeyHeaders returns the headers of the natural key, used to order warehouse pages
func KeyHeaders(md *model.TableMetadata) []string {
	var keys []string
	for _, col := range md.Columns {
		if col.IsPrimaryKey {
			keys = append(keys, col.Header)
		}
	}
	return keys
}
