package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericksa/keiyakucheck/internal/laws"
)

func TestMinIOStore_ObjectNames(t *testing.T) {
	s := &MinIOStore{prefix: normalizePrefix("/reports/")}
	key := KeyFor("報酬を支払う。", laws.DefaultContext())

	name := s.objectName(key)
	assert.NotContains(t, name, ":")
	assert.Equal(t, "reports/", name[:len("reports/")])
	assert.Equal(t, key, s.keyFor(name))

	bare := &MinIOStore{prefix: normalizePrefix("")}
	assert.Equal(t, key, bare.keyFor(bare.objectName(key)))
}

func TestParseMetadata(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	stored := time.Unix(0, 1700000123000000000)

	v, at := parseMetadata(map[string]string{"Format-Version": "3", "Stored-At": "1700000123000000000"}, modified)
	assert.Equal(t, 3, v)
	assert.True(t, at.Equal(stored))

	v, at = parseMetadata(map[string]string{"X-Amz-Meta-Format-Version": "2"}, modified)
	assert.Equal(t, 2, v)
	assert.True(t, at.Equal(modified))

	v, _ = parseMetadata(map[string]string{"format-version": "garbage"}, modified)
	assert.Zero(t, v)
	assert.NotEqual(t, FormatVersion, v)
}

func TestListEntry_UsesStoredAtOverLastModified(t *testing.T) {
	sameSecond := time.Unix(1700000000, 0)
	older := listEntry("a:1", map[string]string{
		"X-Amz-Meta-Format-Version": "3",
		"X-Amz-Meta-Stored-At":      "1700000000100000000",
	}, sameSecond)
	newer := listEntry("b:2", map[string]string{
		"X-Amz-Meta-Format-Version": "3",
		"X-Amz-Meta-Stored-At":      "1700000000900000000",
	}, sameSecond)

	assert.True(t, older.StoredAt.Before(newer.StoredAt))
	assert.Equal(t, FormatVersion, older.Version)

	plain := listEntry("c:3", nil, sameSecond)
	assert.True(t, plain.StoredAt.Equal(sameSecond))
}
