package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siteselect/internal/suitability"
)

func TestFormatCategories(t *testing.T) {
	var buf bytes.Buffer
	formatCategories(&buf, suitability.DefaultCategories())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "THRESHOLD")
	assert.Contains(t, lines[2], "roads")
	assert.Contains(t, lines[2], "motorway,trunk,primary,secondary")
	assert.Contains(t, lines[2], "500")
	assert.Contains(t, lines[5], "hospitals")
	assert.Contains(t, lines[5], "2000")
}

func TestShowAmenities(t *testing.T) {
	dir := t.TempDir()
	elev, flood := writeInputs(t, dir)
	c := testConfig(dir, elev, flood)

	var buf bytes.Buffer
	require.NoError(t, showAmenities(&buf, c))

	out := buf.String()
	assert.Contains(t, out, "bbox (s,w,n,e): 40.")
	assert.Contains(t, out, `way["highway"~"^(motorway|trunk|primary|secondary)$"]`)
	assert.Contains(t, out, `node["amenity"~"^(hospital)$"]`)
	assert.Contains(t, out, "[timeout:5]")
	assert.Equal(t, 4, strings.Count(out, "out skel qt;"))
}

func TestShowAmenities_MissingElevation(t *testing.T) {
	dir := t.TempDir()
	c := testConfig(dir, filepath.Join(dir, "missing.asc"), "")

	var buf bytes.Buffer
	assert.Error(t, showAmenities(&buf, c))
	// the table is still printed
	assert.Contains(t, buf.String(), "schools")
}
