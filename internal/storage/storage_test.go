package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("/devices/7/", "manual v2.pdf")

	assert.True(t, strings.HasPrefix(key, "devices/7/"))
	assert.True(t, strings.HasSuffix(key, "-manual%20v2.pdf"))
	assert.NotEqual(t, key, ObjectKey("devices/7", "manual v2.pdf"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "passwd", sanitize("../../etc/passwd"))
	assert.Equal(t, "report.pdf", sanitize(`C:\docs\report.pdf`))
	assert.Equal(t, "file", sanitize(""))
}
